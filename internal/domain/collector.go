package domain

import "time"

// CollectorType represents how a collector gathers data.
type CollectorType string

// Collector types.
const (
	CollectorTypeAgent      CollectorType = "agent"
	CollectorTypeWinRM      CollectorType = "winrm"
	CollectorTypePowerShell CollectorType = "powershell"
	CollectorTypeHybrid     CollectorType = "hybrid"
)

// IsValid checks if the collector type is known.
func (t CollectorType) IsValid() bool {
	return t == CollectorTypeAgent || t == CollectorTypeWinRM ||
		t == CollectorTypePowerShell || t == CollectorTypeHybrid
}

// Collector represents a remote data-collection agent. LastSeen is nil
// until the collector reports its first heartbeat.
type Collector struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      CollectorType  `json:"type"`
	Config    map[string]any `json:"config,omitempty"`
	LastSeen  *time.Time     `json:"last_seen,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecordHeartbeat updates the last-seen timestamp.
func (c *Collector) RecordHeartbeat(seenAt time.Time) {
	c.LastSeen = &seenAt
}

// UpdateMetadata replaces the collector display metadata and configuration.
func (c *Collector) UpdateMetadata(name string, collectorType CollectorType, config map[string]any) {
	c.Name = name
	c.Type = collectorType
	c.Config = config
}

// IsStale reports whether the collector was seen before the cutoff.
// Collectors that never reported a heartbeat are not considered stale.
func (c *Collector) IsStale(cutoff time.Time) bool {
	return c.LastSeen != nil && c.LastSeen.Before(cutoff)
}

// Clone returns a deep copy of the collector.
func (c *Collector) Clone() *Collector {
	dup := *c
	if c.LastSeen != nil {
		v := *c.LastSeen
		dup.LastSeen = &v
	}
	if c.Config != nil {
		dup.Config = make(map[string]any, len(c.Config))
		for k, v := range c.Config {
			dup.Config[k] = v
		}
	}
	return &dup
}
