package services

import (
	"time"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/model"
)

const (
	StepCompleted = "completed"
	StepCurrent   = "current"
	StepUpcoming  = "upcoming"
)

var timelineSteps = [4]struct {
	id          string
	label       string
	description string
}{
	{"submitted", "Request Submitted", "Your request has been filed with the agency"},
	{"review", "Under Review", "The agency is reviewing your request"},
	{"processing", "Processing", "Records are being located and prepared"},
	{"completed", "Completed", "Your documents are available"},
}

// DeriveTimeline maps a stored status onto the four fixed progress steps.
// A rejected request completes processing but never the final step.
func DeriveTimeline(status string, createdAt, updatedAt time.Time) [4]dto.TimelineStep {
	s := model.ParseStatus(status)

	var steps [4]dto.TimelineStep
	for i, def := range timelineSteps {
		steps[i] = dto.TimelineStep{
			ID:          def.id,
			Label:       def.label,
			Description: def.description,
			Status:      StepUpcoming,
		}
	}

	steps[0].Status = StepCompleted
	steps[0].Date = timePtr(createdAt)

	if s == model.StatusPending {
		steps[1].Status = StepCurrent
	} else {
		steps[1].Status = StepCompleted
		steps[1].Date = timePtr(updatedAt)
	}

	switch s {
	case model.StatusInProgress:
		steps[2].Status = StepCurrent
		steps[2].Date = timePtr(updatedAt)
	case model.StatusCompleted, model.StatusRejected:
		steps[2].Status = StepCompleted
	}

	if s == model.StatusCompleted {
		steps[3].Status = StepCompleted
		steps[3].Date = timePtr(updatedAt)
	}

	return steps
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// ToFoiaRequestResponse attaches the derived timeline to a stored request.
func ToFoiaRequestResponse(req *model.FoiaRequest) dto.FoiaRequestResponse {
	steps := DeriveTimeline(req.Status, req.CreatedAt, req.UpdatedAt)
	return dto.FoiaRequestResponse{
		ID:          req.ID,
		AgencyName:  req.AgencyName,
		AgencyType:  req.AgencyType,
		RecordType:  req.RecordType,
		Description: req.Description,
		Status:      model.ParseStatus(req.Status).String(),
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		Timeline:    steps[:],
	}
}
