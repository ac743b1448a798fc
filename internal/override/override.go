package override

import (
	"sort"
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Registry holds the channels that are under manual control. Overridden
// channels are never commanded by the control loop. The registry lives for
// the lifetime of the process and is safe for concurrent use.
type Registry struct {
	channels cmap.ConcurrentMap[string, struct{}]
}

func NewRegistry() *Registry {
	return &Registry{
		channels: cmap.New[struct{}](),
	}
}

func (r *Registry) Mark(channel int) {
	r.channels.Set(key(channel), struct{}{})
}

func (r *Registry) Clear(channel int) {
	r.channels.Remove(key(channel))
}

func (r *Registry) IsOverridden(channel int) bool {
	return r.channels.Has(key(channel))
}

// Active returns all overridden channels in ascending order
func (r *Registry) Active() []int {
	var result []int
	for _, k := range r.channels.Keys() {
		channel, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		result = append(result, channel)
	}
	sort.Ints(result)
	return result
}

func key(channel int) string {
	return strconv.Itoa(channel)
}
