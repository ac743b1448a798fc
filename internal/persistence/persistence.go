package persistence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketSettings  = "settings"
	BucketProfiles  = "profiles"
	BucketSensors   = "sensors"
	BucketChannels  = "channels"
	BucketCommanded = "commanded"
	BucketReadings  = "readings"

	bucketLog    = "log"
	bucketLatest = "latest"

	keySystemSettings = "system"

	// reading kinds
	KindCpu     = "cpu"
	KindSensor  = "sensor"
	KindChannel = "channel"
	KindCpuFan  = "cpu_fan"

	DefaultRetention = 20000
)

var ErrNotFound = errors.New("not found")

// Reading is a single timestamped telemetry value
type Reading struct {
	Kind      string    `json:"kind"`
	Id        string    `json:"id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemSettings is the typed record of global settings
type SystemSettings struct {
	FanCount         int  `json:"fanCount"`
	PumpChannel      *int `json:"pumpChannel,omitempty"`
	ActiveProfileId  *int `json:"activeProfileId,omitempty"`
	DefaultProfileId *int `json:"defaultProfileId,omitempty"`
}

// IsPump indicates whether the given channel is designated as the pump
func (s SystemSettings) IsPump(channel int) bool {
	return s.PumpChannel != nil && *s.PumpChannel == channel
}

// ProfileRecord is a stored profile, Document holds the raw curve document
type ProfileRecord struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Persistence interface {
	Init() error
	Close() error

	InsertReading(kind string, id string, value float64) error
	LatestReadings(kind string) (map[string]Reading, error)
	RecentReadings(kind string, limit int) ([]Reading, error)

	GetSetting(key string) (string, error)
	SetSetting(key string, value string) error

	LoadSystemSettings() (SystemSettings, error)
	SaveSystemSettings(settings SystemSettings) error
	UpdateSystemSettings(fn func(settings *SystemSettings) error) (SystemSettings, error)

	SaveProfile(record ProfileRecord) (ProfileRecord, error)
	LoadProfile(id int) (ProfileRecord, error)
	ListProfiles() ([]ProfileRecord, error)
	DeleteProfile(id int) error

	RegisterSensor(kind string, sourceId string, defaultName string) (sensors.Sensor, bool, error)
	ListSensors() ([]sensors.Sensor, error)
	SaveSensor(sensor sensors.Sensor) error

	SeedChannels(count int) error
	ListChannels() ([]fans.Channel, error)
	SaveChannelMaxRpm(index int, rpm int) error

	LoadCommanded() (map[int]int, error)
	SaveCommanded(channel int, percent int) error
}

type persistence struct {
	dbPath    string
	retention int
	now       func() time.Time

	mu sync.RWMutex
	db *bolt.DB
}

func NewPersistence(dbPath string, retention int) Persistence {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &persistence{
		dbPath:    dbPath,
		retention: retention,
		now:       time.Now,
	}
}

func (p *persistence) Init() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return nil
	}

	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}

	db, err := bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("could not open database file %s: %w", p.dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketSettings, BucketProfiles, BucketSensors, BucketChannels, BucketCommanded, BucketReadings} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return err
	}

	p.db = db
	return nil
}

func (p *persistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *persistence) update(fn func(tx *bolt.Tx) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return errors.New("persistence not initialized")
	}
	return p.db.Update(fn)
}

func (p *persistence) view(fn func(tx *bolt.Tx) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return errors.New("persistence not initialized")
	}
	return p.db.View(fn)
}

// ---- readings ----

// InsertReading appends a reading to the log of the given kind, updates the
// latest value of the id and prunes the log down to the retention limit.
func (p *persistence) InsertReading(kind string, id string, value float64) error {
	reading := Reading{
		Kind:      kind,
		Id:        id,
		Value:     value,
		Timestamp: p.now(),
	}
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	return p.update(func(tx *bolt.Tx) error {
		kindBucket, err := tx.Bucket([]byte(BucketReadings)).CreateBucketIfNotExists([]byte(kind))
		if err != nil {
			return err
		}
		logBucket, err := kindBucket.CreateBucketIfNotExists([]byte(bucketLog))
		if err != nil {
			return err
		}
		latestBucket, err := kindBucket.CreateBucketIfNotExists([]byte(bucketLatest))
		if err != nil {
			return err
		}

		seq, err := logBucket.NextSequence()
		if err != nil {
			return err
		}
		if err = logBucket.Put(itob(seq), data); err != nil {
			return err
		}
		if err = latestBucket.Put([]byte(id), data); err != nil {
			return err
		}

		// sequence keys are dense, so everything at or below seq-retention is expired
		if seq > uint64(p.retention) {
			cutoff := seq - uint64(p.retention)
			var expired [][]byte
			c := logBucket.Cursor()
			for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= cutoff; k, _ = c.Next() {
				expired = append(expired, append([]byte(nil), k...))
			}
			for _, k := range expired {
				if err := logBucket.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LatestReadings returns the most recent reading of every id of the given kind
func (p *persistence) LatestReadings(kind string) (map[string]Reading, error) {
	result := map[string]Reading{}
	err := p.view(func(tx *bolt.Tx) error {
		kindBucket := tx.Bucket([]byte(BucketReadings)).Bucket([]byte(kind))
		if kindBucket == nil {
			return nil
		}
		latestBucket := kindBucket.Bucket([]byte(bucketLatest))
		if latestBucket == nil {
			return nil
		}
		return latestBucket.ForEach(func(k, v []byte) error {
			var reading Reading
			if err := json.Unmarshal(v, &reading); err != nil {
				ui.Warning("Unable to unmarshal reading %s/%s: %v", kind, string(k), err)
				return nil
			}
			result[string(k)] = reading
			return nil
		})
	})
	return result, err
}

// RecentReadings returns up to limit readings of the given kind, newest first
func (p *persistence) RecentReadings(kind string, limit int) ([]Reading, error) {
	var result []Reading
	err := p.view(func(tx *bolt.Tx) error {
		kindBucket := tx.Bucket([]byte(BucketReadings)).Bucket([]byte(kind))
		if kindBucket == nil {
			return nil
		}
		logBucket := kindBucket.Bucket([]byte(bucketLog))
		if logBucket == nil {
			return nil
		}
		c := logBucket.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(result) < limit); k, v = c.Prev() {
			var reading Reading
			if err := json.Unmarshal(v, &reading); err != nil {
				continue
			}
			result = append(result, reading)
		}
		return nil
	})
	return result, err
}

// ---- settings ----

func (p *persistence) GetSetting(key string) (string, error) {
	var value string
	err := p.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketSettings)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (p *persistence) SetSetting(key string, value string) error {
	return p.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketSettings)).Put([]byte(key), []byte(value))
	})
}

func (p *persistence) LoadSystemSettings() (SystemSettings, error) {
	var settings SystemSettings
	value, err := p.GetSetting(keySystemSettings)
	if err != nil {
		return settings, err
	}
	err = json.Unmarshal([]byte(value), &settings)
	return settings, err
}

func (p *persistence) SaveSystemSettings(settings SystemSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return p.SetSetting(keySystemSettings, string(data))
}

// UpdateSystemSettings applies fn to the stored system settings and saves
// the result, both within a single transaction. Missing or unreadable
// settings start out empty. An error returned by fn discards the change.
func (p *persistence) UpdateSystemSettings(fn func(settings *SystemSettings) error) (SystemSettings, error) {
	var settings SystemSettings
	err := p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSettings))

		settings = SystemSettings{}
		if v := b.Get([]byte(keySystemSettings)); v != nil {
			if err := json.Unmarshal(v, &settings); err != nil {
				ui.Warning("Unable to read system settings, resetting to defaults: %v", err)
				settings = SystemSettings{}
			}
		}
		if err := fn(&settings); err != nil {
			return err
		}

		data, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		return b.Put([]byte(keySystemSettings), data)
	})
	return settings, err
}

// ---- profiles ----

// SaveProfile stores the given profile, assigning a new id if it has none
func (p *persistence) SaveProfile(record ProfileRecord) (ProfileRecord, error) {
	err := p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketProfiles))
		if record.ID <= 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			record.ID = int(seq)
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = p.now()
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(itob(uint64(record.ID)), data)
	})
	return record, err
}

func (p *persistence) LoadProfile(id int) (ProfileRecord, error) {
	var record ProfileRecord
	if id <= 0 {
		return record, ErrNotFound
	}
	err := p.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketProfiles)).Get(itob(uint64(id)))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &record)
	})
	return record, err
}

// ListProfiles returns all stored profiles ordered by id
func (p *persistence) ListProfiles() ([]ProfileRecord, error) {
	var result []ProfileRecord
	err := p.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketProfiles)).ForEach(func(k, v []byte) error {
			var record ProfileRecord
			if err := json.Unmarshal(v, &record); err != nil {
				ui.Warning("Unable to unmarshal profile %d: %v", binary.BigEndian.Uint64(k), err)
				return nil
			}
			result = append(result, record)
			return nil
		})
	})
	return result, err
}

func (p *persistence) DeleteProfile(id int) error {
	return p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketProfiles))
		if b.Get(itob(uint64(id))) == nil {
			return ErrNotFound
		}
		return b.Delete(itob(uint64(id)))
	})
}

// ---- sensors ----

// RegisterSensor returns the sensor with the given kind and source id,
// creating it if it is not known yet. The second return value indicates
// whether a new sensor was created.
func (p *persistence) RegisterSensor(kind string, sourceId string, defaultName string) (sensors.Sensor, bool, error) {
	var result sensors.Sensor
	created := false
	err := p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSensors))
		found := false
		err := b.ForEach(func(k, v []byte) error {
			if found {
				return nil
			}
			var sensor sensors.Sensor
			if err := json.Unmarshal(v, &sensor); err != nil {
				return nil
			}
			if sensor.Kind == kind && sensor.SourceId == sourceId {
				result = sensor
				found = true
			}
			return nil
		})
		if err != nil || found {
			return err
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		result = sensors.Sensor{
			ID:          int(seq),
			Kind:        kind,
			SourceId:    sourceId,
			Name:        defaultName,
			DefaultName: defaultName,
			Unit:        sensors.UnitCelsius,
			Active:      true,
		}
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		created = true
		return b.Put(itob(seq), data)
	})
	return result, created, err
}

func (p *persistence) ListSensors() ([]sensors.Sensor, error) {
	var result []sensors.Sensor
	err := p.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketSensors)).ForEach(func(k, v []byte) error {
			var sensor sensors.Sensor
			if err := json.Unmarshal(v, &sensor); err != nil {
				return nil
			}
			result = append(result, sensor)
			return nil
		})
	})
	return result, err
}

func (p *persistence) SaveSensor(sensor sensors.Sensor) error {
	if sensor.ID <= 0 {
		return fmt.Errorf("invalid sensor id %d", sensor.ID)
	}
	sensor.Unit = sensors.NormalizeUnit(sensor.Unit)
	data, err := json.Marshal(sensor)
	if err != nil {
		return err
	}
	return p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSensors))
		if b.Get(itob(uint64(sensor.ID))) == nil {
			return ErrNotFound
		}
		return b.Put(itob(uint64(sensor.ID)), data)
	})
}

// ---- channels ----

// SeedChannels creates channels 1..count that do not exist yet
func (p *persistence) SeedChannels(count int) error {
	return p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketChannels))
		for index := 1; index <= count; index++ {
			key := itob(uint64(index))
			if b.Get(key) != nil {
				continue
			}
			channel := fans.Channel{
				Index:       index,
				Name:        fans.DefaultChannelName(index),
				DefaultName: fans.DefaultChannelName(index),
			}
			data, err := json.Marshal(channel)
			if err != nil {
				return err
			}
			if err = b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChannels returns all known channels ordered by index. A channel is
// active when its index does not exceed the configured fan count.
func (p *persistence) ListChannels() ([]fans.Channel, error) {
	fanCount := fans.DefaultChannelCount
	settings, err := p.LoadSystemSettings()
	if err == nil {
		fanCount = settings.FanCount
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var result []fans.Channel
	err = p.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketChannels)).ForEach(func(k, v []byte) error {
			var channel fans.Channel
			if err := json.Unmarshal(v, &channel); err != nil {
				return nil
			}
			channel.Active = channel.Index <= fanCount
			result = append(result, channel)
			return nil
		})
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, err
}

// SaveChannelMaxRpm stores the calibrated maximum rpm of a channel
func (p *persistence) SaveChannelMaxRpm(index int, rpm int) error {
	if rpm <= 0 {
		return fmt.Errorf("invalid max rpm %d for channel %d", rpm, index)
	}
	return p.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketChannels))
		v := b.Get(itob(uint64(index)))
		if v == nil {
			return ErrNotFound
		}
		var channel fans.Channel
		if err := json.Unmarshal(v, &channel); err != nil {
			return err
		}
		channel.MaxRpm = &rpm
		data, err := json.Marshal(channel)
		if err != nil {
			return err
		}
		return b.Put(itob(uint64(index)), data)
	})
}

// ---- commanded state ----

// LoadCommanded returns the last commanded percent of every channel
func (p *persistence) LoadCommanded() (map[int]int, error) {
	result := map[int]int{}
	err := p.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketCommanded)).ForEach(func(k, v []byte) error {
			percent, err := strconv.Atoi(string(v))
			if err != nil {
				return nil
			}
			result[int(binary.BigEndian.Uint64(k))] = percent
			return nil
		})
	})
	return result, err
}

func (p *persistence) SaveCommanded(channel int, percent int) error {
	return p.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketCommanded)).Put(itob(uint64(channel)), []byte(strconv.Itoa(percent)))
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
