package models

import (
	"time"

	"github.com/lib/pq"
)

// Lead statuses.
const (
	LeadStatusNew         = "NEW"
	LeadStatusInContact   = "IN_CONTACT"
	LeadStatusProposal    = "PROPOSAL"
	LeadStatusNegotiating = "NEGOTIATING"
	LeadStatusWon         = "WON"
	LeadStatusLost        = "LOST"
)

// Lead is a business or contact being pursued through the pipeline.
type Lead struct {
	ID            int            `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Phone         string         `db:"phone" json:"phone"`
	StageID       int            `db:"stage_id" json:"stage_id"`
	ResponsibleID *int           `db:"responsible_id" json:"responsible_id,omitempty"`
	Status        string         `db:"status" json:"status"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	SuccessChance int            `db:"success_chance" json:"success_chance"`
	Value         float64        `db:"value" json:"value"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// LeadAssignment records one responsible handover of a lead.
type LeadAssignment struct {
	ID                    int       `db:"id" json:"id"`
	LeadID                int       `db:"lead_id" json:"lead_id"`
	PreviousResponsibleID *int      `db:"previous_responsible_id" json:"previous_responsible_id,omitempty"`
	NewResponsibleID      *int      `db:"new_responsible_id" json:"new_responsible_id,omitempty"`
	AssignedBy            int       `db:"assigned_by" json:"assigned_by"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Stage is one column of the pipeline Kanban board.
type Stage struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Position int    `db:"position" json:"position"`
}

// Place is one result of the places/maps prospect search.
type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   string  `json:"phone,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}
