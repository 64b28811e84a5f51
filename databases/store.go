package databases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kennel-portal/models"
)

var ErrDuplicate = errors.New("record already exists")

// Store 是 agent 工具和门户接口共用的数据访问层
type Store struct {
	db         *sql.DB
	paymentURL string
}

func NewStore(db *sql.DB, paymentURL string) *Store {
	return &Store{db: db, paymentURL: paymentURL}
}

func (s *Store) PaymentURL() string { return s.paymentURL }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const puppyColumns = `p.id, COALESCE(p.litter_id, ''), COALESCE(l.name, ''), l.born_on, p.name,
	COALESCE(p.sex, ''), COALESCE(p.color, ''), p.status, p.price_cents, p.ready_date`

// ListPuppies 按出窝日期升序返回，日期为空的排在最后
func (s *Store) ListPuppies(ctx context.Context, filter models.PuppyFilter) ([]models.Puppy, error) {
	query := "SELECT " + puppyColumns + "\nFROM puppies p\nLEFT JOIN litters l ON l.id = p.litter_id"
	var args []any
	if filter.Status != "" {
		query += "\nWHERE p.status = ?"
		args = append(args, strings.ToUpper(filter.Status))
	}
	query += "\nORDER BY p.ready_date IS NULL, p.ready_date ASC, p.name ASC"
	if filter.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query puppies: %w", err)
	}
	defer rows.Close()

	puppies := []models.Puppy{}
	for rows.Next() {
		var (
			p     models.Puppy
			born  sql.NullTime
			ready sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.LitterID, &p.LitterName, &born, &p.Name, &p.Sex, &p.Color, &p.Status, &p.PriceCents, &ready); err != nil {
			return nil, fmt.Errorf("scan puppy: %w", err)
		}
		if born.Valid {
			t := born.Time.UTC()
			p.LitterBornOn = &t
		}
		if ready.Valid {
			t := ready.Time.UTC()
			p.ReadyDate = &t
		}
		puppies = append(puppies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return puppies, nil
}

// ListApplications 返回该用户最新的 limit 条申请
func (s *Store) ListApplications(ctx context.Context, userID string, limit int) ([]models.Application, error) {
	query := `SELECT id, user_id, status, created_at, updated_at
FROM applications
WHERE user_id = ?
ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.UserID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *Store) InsertMessage(ctx context.Context, msg models.BreederMessage) (models.BreederMessage, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO breeder_messages (id, user_id, sender, body, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.UserID, msg.Sender, msg.Body, msg.CreatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return models.BreederMessage{}, fmt.Errorf("message %s: %w", msg.ID, ErrDuplicate)
		}
		return models.BreederMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages 返回该用户与繁育者的消息，最新的在前
func (s *Store) ListMessages(ctx context.Context, userID string, limit int) ([]models.BreederMessage, error) {
	query := `SELECT id, user_id, sender, body, created_at
FROM breeder_messages
WHERE user_id = ?
ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.BreederMessage{}
	for rows.Next() {
		var m models.BreederMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
