// Package rotate re-encrypts every registered PII column from an old
// Fernet key to a new one. It is an offline maintenance operation: rows
// are processed sequentially, one bad row is reported rather than
// aborting the run, and dry-run mode performs zero writes.
package rotate

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/fieldcrypt"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/obs"
)

// ErrIdenticalKeys indicates the old and new keys decode to the same
// material; there is nothing to rotate.
var ErrIdenticalKeys = errors.New("rotate: old and new keys are identical")

// Rotator drives one rotation run. Construction validates both keys and
// the registry before any storage is touched.
type Rotator struct {
	db     *sql.DB
	fields fieldcrypt.Registry
	oldKey *fieldcrypt.Codec
	newKey *fieldcrypt.Codec
	logger *log.Logger
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithRegistry overrides the default encrypted-field registry.
func WithRegistry(r fieldcrypt.Registry) Option {
	return func(rot *Rotator) { rot.fields = r }
}

// WithLogger overrides the destination for per-row failure logging.
func WithLogger(l *log.Logger) Option {
	return func(rot *Rotator) {
		if l != nil {
			rot.logger = l
		}
	}
}

// New validates key material and the field registry and returns a ready
// Rotator. Invalid keys, identical keys, or a malformed registry fail
// here, before any database access.
func New(db *sql.DB, oldKeyRaw, newKeyRaw string, opts ...Option) (*Rotator, error) {
	oldParsed, err := fieldcrypt.ParseKey(oldKeyRaw)
	if err != nil {
		return nil, fmt.Errorf("old key: %w", err)
	}
	newParsed, err := fieldcrypt.ParseKey(newKeyRaw)
	if err != nil {
		return nil, fmt.Errorf("new key: %w", err)
	}
	if subtle.ConstantTimeCompare(oldParsed[:], newParsed[:]) == 1 {
		return nil, ErrIdenticalKeys
	}

	oldCodec, err := fieldcrypt.NewCodec(oldKeyRaw)
	if err != nil {
		return nil, fmt.Errorf("old key: %w", err)
	}
	newCodec, err := fieldcrypt.NewCodec(newKeyRaw)
	if err != nil {
		return nil, fmt.Errorf("new key: %w", err)
	}

	rot := &Rotator{
		db:     db,
		fields: fieldcrypt.DefaultRegistry,
		oldKey: oldCodec,
		newKey: newCodec,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(rot)
	}
	if err := rot.fields.Validate(); err != nil {
		return nil, fmt.Errorf("field registry: %w", err)
	}
	return rot, nil
}

// FieldSummary reports the outcome for one registered column.
type FieldSummary struct {
	Table   string
	Column  string
	Rows    int
	Rotated int
	Skipped int
	Failed  int
}

// Summary aggregates a whole run. In dry-run mode Rotated counts rows
// that would have been rewritten.
type Summary struct {
	DryRun bool
	Fields []FieldSummary
}

// Totals sums the per-field counters.
func (s *Summary) Totals() (rows, rotated, skipped, failed int) {
	for _, f := range s.Fields {
		rows += f.Rows
		rotated += f.Rotated
		skipped += f.Skipped
		failed += f.Failed
	}
	return rows, rotated, skipped, failed
}

// Run processes every registered field in declaration order. Database
// errors abort the run; per-row decryption failures are counted, logged
// with the primary key and error, and do not stop processing. When
// execute is false no UPDATE is issued.
func (r *Rotator) Run(ctx context.Context, execute bool) (*Summary, error) {
	summary := &Summary{DryRun: !execute}
	for _, field := range r.fields {
		fs, err := r.rotateField(ctx, field, execute)
		if err != nil {
			return nil, fmt.Errorf("rotate %s.%s: %w", field.Table, field.Column, err)
		}
		summary.Fields = append(summary.Fields, fs)
	}
	return summary, nil
}

type encryptedRow struct {
	pk    int64
	value sql.NullString
}

func (r *Rotator) rotateField(ctx context.Context, field fieldcrypt.Field, execute bool) (FieldSummary, error) {
	fs := FieldSummary{Table: field.Table, Column: field.Column}

	// Identifiers come exclusively from the validated static registry.
	query := fmt.Sprintf(
		`SELECT %s, %s FROM %s WHERE %s IS NOT NULL AND %s != ''`,
		field.PKColumn, field.Column, field.Table, field.Column, field.Column,
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fs, err
	}
	var pending []encryptedRow
	for rows.Next() {
		var row encryptedRow
		if err := rows.Scan(&row.pk, &row.value); err != nil {
			rows.Close()
			return fs, err
		}
		pending = append(pending, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fs, err
	}
	rows.Close()

	update := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2`,
		field.Table, field.Column, field.PKColumn,
	)

	for _, row := range pending {
		fs.Rows++
		if !row.value.Valid || strings.TrimSpace(row.value.String) == "" {
			fs.Skipped++
			obs.ObserveRotationRow("skipped")
			continue
		}
		plain, err := r.oldKey.DecryptString(row.value.String)
		if err != nil {
			fs.Failed++
			obs.ObserveRotationRow("failed")
			r.logger.Printf("rotate %s.%s pk=%d: %v", field.Table, field.Column, row.pk, err)
			continue
		}
		rotated, err := r.newKey.EncryptString(plain)
		if err != nil {
			fs.Failed++
			obs.ObserveRotationRow("failed")
			r.logger.Printf("rotate %s.%s pk=%d: %v", field.Table, field.Column, row.pk, err)
			continue
		}
		if execute {
			if _, err := r.db.ExecContext(ctx, update, rotated, row.pk); err != nil {
				return fs, err
			}
		}
		fs.Rotated++
		obs.ObserveRotationRow("rotated")
	}
	return fs, nil
}
