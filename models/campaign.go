package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Campaign struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	InitVideo        string             `bson:"init_video,omitempty" json:"init_video,omitempty"`
	EndVideo         string             `bson:"end_video,omitempty" json:"end_video,omitempty"`
	InitDate         *time.Time         `bson:"init_date,omitempty" json:"init_date,omitempty"`
	EndDate          *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	IsCause          bool               `bson:"is_cause" json:"is_cause"`
	IsExperience     bool               `bson:"is_experience" json:"is_experience"`
	IsExecute        bool               `bson:"is_execute" json:"is_execute"`
	IsFinished       bool               `bson:"is_finished" json:"is_finished"`
	Status           bool               `bson:"status" json:"status"`
	Delete           bool               `bson:"delete" json:"delete"`
	CumulativeAmount float64            `bson:"cumulative_amount" json:"cumulative_amount"`
	RequestAmount    float64            `bson:"request_amount" json:"request_amount"`
	DonorsCount      int                `bson:"donors_count" json:"donors_count"`
	Foundation       Ref                `bson:"foundation" json:"foundation"`
	Category         Ref                `bson:"category" json:"category"`
	Responsible      Ref                `bson:"responsible" json:"responsible"`
	CreatedBy        Ref                `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// CampaignView is a campaign with its references resolved. Each related
// entity is either the fetched document or nil when the reference is absent,
// malformed, or dangling.
type CampaignView struct {
	Campaign        `bson:",inline"`
	FoundationData  *Foundation `bson:"-" json:"foundation_data,omitempty"`
	CategoryData    *Category   `bson:"-" json:"category_data,omitempty"`
	ResponsibleData *User       `bson:"-" json:"responsible_data,omitempty"`
	CreatedByData   *User       `bson:"-" json:"created_by_data,omitempty"`
}

// CampaignState is the lifecycle state derived from the campaign flags.
type CampaignState string

const (
	CampaignPending   CampaignState = "PENDING"
	CampaignActive    CampaignState = "ACTIVE"
	CampaignExecuting CampaignState = "EXECUTING"
	CampaignFinished  CampaignState = "FINISHED"
)

// ErrBadTransition is returned when a lifecycle transition is requested from
// a state it is not defined for. Finished is terminal.
var ErrBadTransition = errors.New("campaign: transition not allowed from current state")

// State derives the lifecycle state from the flag set. The enable/disable
// toggle writes the status flag independently, so a disabled campaign that
// already began execution maps to no well-formed state; State reports it as
// Pending, which is the conservative reading for approval screens.
func (c *Campaign) State() CampaignState {
	switch {
	case c.IsFinished:
		return CampaignFinished
	case c.IsExecute && c.Status:
		return CampaignExecuting
	case c.Status:
		return CampaignActive
	default:
		return CampaignPending
	}
}

// NextFlags returns the full flag set for a transition target, or
// ErrBadTransition if the target is not reachable from the current state.
// Writing the complete set, rather than one flag, keeps the write path from
// manufacturing contradictory combinations.
func (c *Campaign) NextFlags(target CampaignState) (map[string]any, error) {
	state := c.State()
	valid := false
	switch target {
	case CampaignActive:
		valid = state == CampaignPending
	case CampaignExecuting:
		valid = state == CampaignActive
	case CampaignFinished:
		valid = state == CampaignActive || state == CampaignExecuting
	}
	if !valid {
		return nil, ErrBadTransition
	}
	return map[string]any{
		"status":      target != CampaignPending,
		"is_execute":  target == CampaignExecuting || target == CampaignFinished,
		"is_finished": target == CampaignFinished,
	}, nil
}
