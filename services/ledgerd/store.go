package ledgerd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"palmpay/storage"
)

var (
	ErrUserNotFound = errors.New("ledgerd: user not found")
	ErrPhoneTaken   = errors.New("ledgerd: phone already registered")
)

// userRecord is the stored profile. Balance is kept in whole currency units.
type userRecord struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	PasswordHash []byte    `json:"password_hash"`
	PalmCode     string    `json:"palm_code,omitempty"`
	PalmVerified bool      `json:"palm_verified"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// txRecord is one ledger movement, either an order or a top-up.
type txRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Kind          string         `json:"kind"` // "order" or "topup"
	Amount        int64          `json:"amount"`
	PaymentMethod string         `json:"payment_method"`
	PaymentStatus string         `json:"payment_status"`
	TransactionID string         `json:"transaction_id"`
	Items         map[string]int `json:"items,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

const (
	txKindOrder = "order"
	txKindTopup = "topup"
)

// Store keeps ledgerd's records in a key-value database: users by phone with
// id and palm-code indirections, and a per-user transaction log.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	if db == nil {
		panic("ledgerd: database required")
	}
	return &Store{db: db}
}

func userPhoneKey(phone string) []byte { return []byte("user:phone:" + phone) }
func userIDKey(id string) []byte       { return []byte("user:id:" + id) }
func palmKey(code string) []byte       { return []byte("user:palm:" + code) }
func txKey(userID string) []byte       { return []byte("txs:" + userID) }

// CreateUser inserts a new profile; the phone number is the natural key.
func (s *Store) CreateUser(rec userRecord) error {
	if _, err := s.db.Get(userPhoneKey(rec.Phone)); err == nil {
		return ErrPhoneTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("probe phone: %w", err)
	}
	if err := s.putUser(rec); err != nil {
		return err
	}
	if err := s.db.Put(userIDKey(rec.ID), []byte(rec.Phone)); err != nil {
		return fmt.Errorf("index user id: %w", err)
	}
	if rec.PalmCode != "" {
		if err := s.db.Put(palmKey(rec.PalmCode), []byte(rec.ID)); err != nil {
			return fmt.Errorf("index palm code: %w", err)
		}
	}
	return nil
}

func (s *Store) putUser(rec userRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.db.Put(userPhoneKey(rec.Phone), raw); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

// UpdateUser rewrites a profile and keeps the palm-code indirection current.
func (s *Store) UpdateUser(rec userRecord, previousPalm string) error {
	if previousPalm != "" && previousPalm != rec.PalmCode {
		// The old code stops resolving; no delete primitive is needed, the
		// slot just points nowhere.
		if err := s.db.Put(palmKey(previousPalm), []byte("")); err != nil {
			return fmt.Errorf("unbind palm code: %w", err)
		}
	}
	if rec.PalmCode != "" {
		if err := s.db.Put(palmKey(rec.PalmCode), []byte(rec.ID)); err != nil {
			return fmt.Errorf("index palm code: %w", err)
		}
	}
	return s.putUser(rec)
}

// UserByPhone loads a profile by its natural key.
func (s *Store) UserByPhone(phone string) (userRecord, error) {
	raw, err := s.db.Get(userPhoneKey(phone))
	if errors.Is(err, storage.ErrNotFound) {
		return userRecord{}, ErrUserNotFound
	}
	if err != nil {
		return userRecord{}, fmt.Errorf("read user: %w", err)
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return userRecord{}, fmt.Errorf("decode user: %w", err)
	}
	return rec, nil
}

// UserByID resolves the id indirection.
func (s *Store) UserByID(id string) (userRecord, error) {
	phone, err := s.db.Get(userIDKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return userRecord{}, ErrUserNotFound
	}
	if err != nil {
		return userRecord{}, fmt.Errorf("resolve user id: %w", err)
	}
	return s.UserByPhone(string(phone))
}

// UserByPalmCode resolves the palm-code indirection; an unbound or stale code
// misses.
func (s *Store) UserByPalmCode(code string) (userRecord, error) {
	id, err := s.db.Get(palmKey(code))
	if errors.Is(err, storage.ErrNotFound) || len(id) == 0 {
		return userRecord{}, ErrUserNotFound
	}
	if err != nil {
		return userRecord{}, fmt.Errorf("resolve palm code: %w", err)
	}
	rec, err := s.UserByID(string(id))
	if err != nil {
		return userRecord{}, err
	}
	if rec.PalmCode != code {
		return userRecord{}, ErrUserNotFound
	}
	return rec, nil
}

// AppendTransaction adds one movement to the user's log.
func (s *Store) AppendTransaction(tx txRecord) error {
	txs, err := s.Transactions(tx.UserID)
	if err != nil {
		return err
	}
	txs = append(txs, tx)
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := s.db.Put(txKey(tx.UserID), raw); err != nil {
		return fmt.Errorf("write transactions: %w", err)
	}
	return nil
}

// Transactions returns the user's full movement log in insertion order.
func (s *Store) Transactions(userID string) ([]txRecord, error) {
	raw, err := s.db.Get(txKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	var txs []txRecord
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txs, nil
}

// TransactionsByKind filters the log to orders or top-ups.
func (s *Store) TransactionsByKind(userID, kind string) ([]txRecord, error) {
	txs, err := s.Transactions(userID)
	if err != nil {
		return nil, err
	}
	var filtered []txRecord
	for _, tx := range txs {
		if tx.Kind == kind {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}
