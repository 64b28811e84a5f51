package models

import "time"

// Puppy statuses
const (
	PuppyAvailable = "AVAILABLE"
	PuppyReady     = "READY"
	PuppyReserved  = "RESERVED"
	PuppySold      = "SOLD"
)

// PuppyStatuses lists every status a puppy row may carry.
var PuppyStatuses = []string{PuppyAvailable, PuppyReady, PuppyReserved, PuppySold}

type Puppy struct {
	ID           string     `json:"id"`
	LitterID     string     `json:"litter_id,omitempty"`
	LitterName   string     `json:"litter_name,omitempty"`
	LitterBornOn *time.Time `json:"litter_born_on,omitempty"`
	Name         string     `json:"name"`
	Sex          string     `json:"sex,omitempty"`
	Color        string     `json:"color,omitempty"`
	Status       string     `json:"status"`
	PriceCents   int64      `json:"price_cents"`
	ReadyDate    *time.Time `json:"ready_date,omitempty"`
}

type Litter struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	BornOn  *time.Time `json:"born_on,omitempty"`
	Puppies []Puppy    `json:"puppies"`
}

type Application struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message senders
const (
	SenderBuyer   = "buyer"
	SenderBreeder = "breeder"
)

// BreederMessage is a buyer/breeder conversation record.
type BreederMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentLink is returned by the payment tool; it never carries a charge.
type PaymentLink struct {
	URL  string `json:"url"`
	Note string `json:"note,omitempty"`
}

// PuppyFilter selects puppies; an empty Status matches every status and a
// zero Limit means no limit.
type PuppyFilter struct {
	Status string
	Limit  int
}
