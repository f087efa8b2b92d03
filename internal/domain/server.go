package domain

import "time"

// ServerStatus represents the operational state of a monitored server.
type ServerStatus string

// Server operational states.
const (
	ServerStatusHealthy ServerStatus = "healthy"
	ServerStatusWarning ServerStatus = "warning"
	ServerStatusDown    ServerStatus = "down"
	ServerStatusUnknown ServerStatus = "unknown"
)

// IsValid checks if the server status is known.
func (s ServerStatus) IsValid() bool {
	return s == ServerStatusHealthy || s == ServerStatusWarning ||
		s == ServerStatusDown || s == ServerStatusUnknown
}

// EnvironmentType represents a deployment environment label.
type EnvironmentType string

// Deployment environments.
const (
	EnvironmentDev  EnvironmentType = "dev"
	EnvironmentTest EnvironmentType = "test"
	EnvironmentProd EnvironmentType = "prod"
)

// IsValid checks if the environment label is known.
func (e EnvironmentType) IsValid() bool {
	return e == EnvironmentDev || e == EnvironmentTest || e == EnvironmentProd
}

// Server represents a monitored host in the inventory.
type Server struct {
	ID            string          `json:"id"`
	Hostname      string          `json:"hostname"`
	DisplayName   string          `json:"display_name,omitempty"`
	Environment   EnvironmentType `json:"environment"`
	Status        ServerStatus    `json:"status"`
	IPAddress     string          `json:"ip_address,omitempty"`
	OS            string          `json:"os,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UpdateMetadata replaces the mutable inventory fields.
func (s *Server) UpdateMetadata(displayName string, env EnvironmentType, ipAddress, os string, tags []string) {
	s.DisplayName = displayName
	s.Environment = env
	s.IPAddress = ipAddress
	s.OS = os
	s.Tags = tags
}

// RecordHealth updates the reported health state and resource usage.
func (s *Server) RecordHealth(status ServerStatus, cpuPercent, memoryPercent float64) {
	s.Status = status
	s.CPUPercent = cpuPercent
	s.MemoryPercent = memoryPercent
}

// Clone returns a deep copy of the server.
func (s *Server) Clone() *Server {
	dup := *s
	if s.Tags != nil {
		dup.Tags = append([]string(nil), s.Tags...)
	}
	return &dup
}
