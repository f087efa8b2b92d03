// Package postgres provides a PostgreSQL server inventory repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/servers"
)

// Repository is a PostgreSQL implementation of servers.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL server repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AddServer stores a new server.
func (r *Repository) AddServer(ctx context.Context, server *domain.Server) error {
	query := `
		INSERT INTO servers (
			id, hostname, display_name, environment, status, ip_address,
			os, tags, cpu_percent, memory_percent, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		server.ID,
		server.Hostname,
		server.DisplayName,
		string(server.Environment),
		string(server.Status),
		server.IPAddress,
		server.OS,
		server.Tags,
		server.CPUPercent,
		server.MemoryPercent,
		server.CreatedAt,
		server.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return servers.ErrHostnameTaken
		}
		return fmt.Errorf("add server: %w", err)
	}
	return nil
}

// GetServer retrieves a server by ID.
func (r *Repository) GetServer(ctx context.Context, id string) (*domain.Server, error) {
	query := `
		SELECT id, hostname, display_name, environment, status, ip_address,
		       os, tags, cpu_percent, memory_percent, created_at, updated_at
		FROM servers
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	server, err := scanServer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, servers.ErrServerNotFound
		}
		return nil, fmt.Errorf("get server: %w", err)
	}
	return server, nil
}

// ListServers returns servers matching the filter sorted by hostname.
func (r *Repository) ListServers(ctx context.Context, filter servers.ServerFilter) ([]*domain.Server, error) {
	query := `
		SELECT id, hostname, display_name, environment, status, ip_address,
		       os, tags, cpu_percent, memory_percent, created_at, updated_at
		FROM servers
		WHERE ($1::text IS NULL OR environment = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY hostname`

	rows, err := r.pool.Query(ctx, query,
		(*string)(filter.Environment),
		(*string)(filter.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var result []*domain.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		result = append(result, server)
	}
	return result, rows.Err()
}

// UpdateServer replaces a stored server.
func (r *Repository) UpdateServer(ctx context.Context, server *domain.Server) error {
	query := `
		UPDATE servers
		SET hostname = $2, display_name = $3, environment = $4, status = $5,
		    ip_address = $6, os = $7, tags = $8, cpu_percent = $9,
		    memory_percent = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		server.ID,
		server.Hostname,
		server.DisplayName,
		string(server.Environment),
		string(server.Status),
		server.IPAddress,
		server.OS,
		server.Tags,
		server.CPUPercent,
		server.MemoryPercent,
		server.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return servers.ErrServerNotFound
	}
	return nil
}

// DeleteServer removes a server.
func (r *Repository) DeleteServer(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return servers.ErrServerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*domain.Server, error) {
	var (
		server      domain.Server
		environment string
		status      string
	)
	err := row.Scan(
		&server.ID,
		&server.Hostname,
		&server.DisplayName,
		&environment,
		&status,
		&server.IPAddress,
		&server.OS,
		&server.Tags,
		&server.CPUPercent,
		&server.MemoryPercent,
		&server.CreatedAt,
		&server.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	server.Environment = domain.EnvironmentType(environment)
	server.Status = domain.ServerStatus(status)
	return &server, nil
}
