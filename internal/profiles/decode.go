package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hydrox/hydrox/internal/curves"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
	"github.com/mitchellh/mapstructure"
)

var ErrUnknownProfileFormat = errors.New("unknown profile format")

var legacyKeyPattern = regexp.MustCompile(`^fan_(\d+)$`)

type rawDocument struct {
	Version  int                    `mapstructure:"version"`
	Rules    []interface{}          `mapstructure:"rules"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

type rawRule struct {
	SensorId interface{}   `mapstructure:"sensor_id"`
	Channels []interface{} `mapstructure:"fan_channels"`
	Points   []interface{} `mapstructure:"points"`
}

type document struct {
	Version  int      `json:"version"`
	Rules    []Rule   `json:"rules"`
	Settings Settings `json:"settings"`
}

// Decode parses a stored profile document into its normalized form.
// Documents using the legacy "fan_<n>" layout are converted to one rule
// per channel, attributed to the cpu sensor.
func Decode(data []byte) (Profile, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnknownProfileFormat, err)
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return Profile{}, fmt.Errorf("%w: expected an object, got %T", ErrUnknownProfileFormat, raw)
	}
	return DecodeMap(fields)
}

// DecodeMap is like Decode, but takes an already unmarshalled document
func DecodeMap(fields map[string]interface{}) (Profile, error) {
	version, err := detectVersion(fields)
	if err != nil {
		return Profile{}, err
	}

	switch version {
	case VersionLegacy:
		return decodeLegacy(fields)
	case VersionRules:
		return decodeRules(fields)
	default:
		return Profile{}, fmt.Errorf("%w: unsupported version %d", ErrUnknownProfileFormat, version)
	}
}

func detectVersion(fields map[string]interface{}) (int, error) {
	if rawVersion, ok := fields["version"]; ok {
		version, err := util.AnyToInt(rawVersion)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid version: %v", ErrUnknownProfileFormat, err)
		}
		return version, nil
	}
	if _, ok := fields["rules"]; ok {
		return VersionRules, nil
	}
	if len(fields) <= 0 {
		return 0, fmt.Errorf("%w: empty document", ErrUnknownProfileFormat)
	}
	for key := range fields {
		if !legacyKeyPattern.MatchString(key) {
			return 0, fmt.Errorf("%w: unexpected key %q", ErrUnknownProfileFormat, key)
		}
	}
	return VersionLegacy, nil
}

func decodeLegacy(fields map[string]interface{}) (Profile, error) {
	var rules []Rule
	for _, key := range util.SortedKeys(fields) {
		if key == "version" {
			continue
		}
		match := legacyKeyPattern.FindStringSubmatch(key)
		if match == nil {
			return Profile{}, fmt.Errorf("%w: unexpected key %q", ErrUnknownProfileFormat, key)
		}
		channel, err := strconv.Atoi(match[1])
		if err != nil {
			return Profile{}, fmt.Errorf("%w: invalid channel in %q", ErrUnknownProfileFormat, key)
		}
		points, ok := fields[key].([]interface{})
		if !ok {
			return Profile{}, fmt.Errorf("%w: %s is not a list of points", ErrUnknownProfileFormat, key)
		}
		rules = append(rules, Rule{
			SensorId: sensors.CpuSensorId,
			Channels: []int{channel},
			Points:   curves.ParsePoints(points),
		})
	}
	if len(rules) <= 0 {
		return Profile{}, fmt.Errorf("%w: no channels in legacy document", ErrUnknownProfileFormat)
	}
	return Profile{Rules: rules}, nil
}

func decodeRules(fields map[string]interface{}) (Profile, error) {
	var raw rawDocument
	if err := decodeStruct(fields, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnknownProfileFormat, err)
	}

	profile := Profile{
		Settings: ParseSettings(raw.Settings),
	}
	for i, entry := range raw.Rules {
		rule, err := decodeRule(entry)
		if err != nil {
			ui.Debug("Skipping rule %d: %v", i, err)
			continue
		}
		profile.Rules = append(profile.Rules, rule)
	}
	return profile, nil
}

func decodeRule(entry interface{}) (Rule, error) {
	var raw rawRule
	if err := decodeStruct(entry, &raw); err != nil {
		return Rule{}, err
	}
	sensorId, ok := idString(raw.SensorId)
	if !ok {
		return Rule{}, errors.New("missing sensor_id")
	}

	rule := Rule{
		SensorId: sensorId,
		Points:   curves.ParsePoints(raw.Points),
	}
	for _, rawChannel := range raw.Channels {
		channel, err := util.AnyToInt(rawChannel)
		if err != nil {
			continue
		}
		rule.Channels = append(rule.Channels, channel)
	}
	return rule, nil
}

func decodeStruct(input interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// ParseSettings reads the settings bag of a profile. Values that cannot be
// interpreted fall back to their zero value (unset bounds for sensor limits).
func ParseSettings(raw map[string]interface{}) Settings {
	settings := Settings{
		SensorSmoothingSec: readInt(raw, "sensor_smoothing_sec"),
		FanSmoothingSec:    readInt(raw, "fan_smoothing_sec"),
		PumpSmoothingSec:   readInt(raw, "pump_smoothing_sec"),
		FanRateLimitRpm:    readInt(raw, "fan_rate_limit_rpm"),
		PumpRateLimitRpm:   readInt(raw, "pump_rate_limit_rpm"),
		SensorMinC:         readFloat(raw, "sensor_min_c"),
		SensorMaxC:         readFloat(raw, "sensor_max_c"),
	}

	if fallbacks, ok := raw["fallback_map"].(map[string]interface{}); ok {
		settings.FallbackMap = map[string]string{}
		for key, value := range fallbacks {
			if id, ok := idString(value); ok {
				settings.FallbackMap[key] = id
			}
		}
	}
	return settings
}

// Encode serializes the profile rules and settings using the current document layout
func Encode(profile Profile) ([]byte, error) {
	rules := profile.Rules
	if rules == nil {
		rules = []Rule{}
	}
	return json.Marshal(document{
		Version:  VersionRules,
		Rules:    rules,
		Settings: profile.Settings,
	})
}

func readInt(raw map[string]interface{}, key string) int {
	value, ok := raw[key]
	if !ok || value == nil {
		return 0
	}
	result, err := util.AnyToInt(value)
	if err != nil {
		return 0
	}
	return result
}

func readFloat(raw map[string]interface{}, key string) *float64 {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	result, err := util.AnyToFloat(value)
	if err != nil {
		return nil
	}
	return &result
}

// idString converts a sensor reference (string or number) to its logical id
func idString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed, len(trimmed) > 0
	case nil:
		return "", false
	default:
		f, err := util.AnyToFloat(v)
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
}
