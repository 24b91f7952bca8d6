package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/veriface/veriface/internal/identity"
	"github.com/veriface/veriface/internal/recognize"
)

// Enrolled is one roster entry.
type Enrolled struct {
	Name string
	Role identity.Role
}

// LoadEnrolledIdentities returns the full roster with roles.
func (s *Store) LoadEnrolledIdentities(ctx context.Context) ([]Enrolled, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name, role FROM identities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying identities: %w", err)
	}
	defer rows.Close()

	var out []Enrolled
	for rows.Next() {
		var e Enrolled
		var role string
		if err := rows.Scan(&e.Name, &role); err != nil {
			return nil, fmt.Errorf("scanning identity: %w", err)
		}
		e.Role = identity.ParseRole(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsEnrolled reports whether an identity exists in the roster.
func (s *Store) IsEnrolled(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.conn.QueryRowContext(ctx,
		s.bind(`SELECT name FROM identities WHERE name = ?`), name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying identity %q: %w", name, err)
	}
	return true, nil
}

// Role returns the stored role for an identity, or (RoleUser, false) when
// the identity is not enrolled.
func (s *Store) Role(ctx context.Context, name string) (identity.Role, bool, error) {
	var role string
	err := s.conn.QueryRowContext(ctx,
		s.bind(`SELECT role FROM identities WHERE name = ?`), name,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.RoleUser, false, nil
	}
	if err != nil {
		return identity.RoleUser, false, fmt.Errorf("querying role for %q: %w", name, err)
	}
	return identity.ParseRole(role), true, nil
}

// SaveSamples enrolls (or re-enrolls) an identity and appends its face
// sample vectors to the training corpus in one transaction. A partial batch
// is never persisted.
func (s *Store) SaveSamples(ctx context.Context, name string, role identity.Role, vectors [][]float32) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	upsert := `INSERT INTO identities (name, role, created_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET role = excluded.role`
	if _, err := tx.ExecContext(ctx, s.bind(upsert), name, string(role), now); err != nil {
		return fmt.Errorf("upserting identity %q: %w", name, err)
	}

	insert := s.bind(`INSERT INTO face_samples (id, identity, vector, created_at) VALUES (?, ?, ?, ?)`)
	for _, vec := range vectors {
		if _, err := tx.ExecContext(ctx, insert, uuid.New().String(), name, encodeVector(vec), now); err != nil {
			return fmt.Errorf("inserting face sample for %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// LoadTrainingSet returns all face sample labels and vectors, parallel slices.
func (s *Store) LoadTrainingSet(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT identity, vector FROM face_samples ORDER BY created_at, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying face samples: %w", err)
	}
	defer rows.Close()

	var labels []string
	var vectors [][]float32
	for rows.Next() {
		var label string
		var raw []byte
		if err := rows.Scan(&label, &raw); err != nil {
			return nil, nil, fmt.Errorf("scanning face sample: %w", err)
		}
		vec, err := decodeVector(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding face sample for %q: %w", label, err)
		}
		labels = append(labels, label)
		vectors = append(vectors, vec)
	}
	return labels, vectors, rows.Err()
}

// encodeVector serializes a feature vector as little-endian float32 bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not float32-aligned", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if len(vec) != recognize.Dim {
		return nil, fmt.Errorf("vector has dimension %d, want %d", len(vec), recognize.Dim)
	}
	return vec, nil
}
