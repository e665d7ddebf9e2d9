package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Screening endpoints. Candidates move through screening, orientation and
// enrollment into a training batch.
const (
	PathScreeningPending    = "/api/screening/pending"
	PathOrientationPending  = "/api/screening/pending-orientation"
	PathEnrollmentPending   = "/api/screening/pending-enroll"
	PathEnrolled            = "/api/screening/enrolled"
	PathScreeningStats      = "/api/screening/stats"
	PathCompleteScreening   = "/api/screening/complete-screening"
	PathCompleteOrientation = "/api/screening/complete-orientation"
	PathEnroll              = "/api/screening/enroll"
	pathWorkflowPrefix      = "/api/screening/"
)

// HeaderAdminUserID names the admin a workflow change is recorded against.
const HeaderAdminUserID = "X-Admin-User-Id"

// Queue is a stage of the candidate workflow.
type Queue string

const (
	QueueScreening   Queue = "screening"
	QueueOrientation Queue = "orientation"
	QueueEnrollment  Queue = "enroll"
	QueueEnrolled    Queue = "enrolled"
)

// Queues lists the workflow queues in pipeline order.
func Queues() []Queue {
	return []Queue{QueueScreening, QueueOrientation, QueueEnrollment, QueueEnrolled}
}

// ParseQueue parses a queue name. The empty string selects QueueScreening.
func ParseQueue(s string) (Queue, error) {
	if s == "" {
		return QueueScreening, nil
	}
	for _, q := range Queues() {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown queue %q (want screening, orientation, enroll or enrolled)", s)
}

func (q Queue) path() string {
	switch q {
	case QueueOrientation:
		return PathOrientationPending
	case QueueEnrollment:
		return PathEnrollmentPending
	case QueueEnrolled:
		return PathEnrolled
	default:
		return PathScreeningPending
	}
}

// Workflow is a candidate's progress through screening, orientation and
// enrollment.
type Workflow struct {
	ID               int64    `json:"id"`
	CandidateID      int64    `json:"candidateId"`
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	Email            string   `json:"email,omitempty"`
	PhoneNumber      string   `json:"phoneNumber,omitempty"`
	DateOfBirth      string   `json:"dateOfBirth,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	EngagementScore  *float64 `json:"engagementScore,omitempty"`
	DropoutRiskScore *float64 `json:"dropoutRiskScore,omitempty"`

	Status            string `json:"status"`
	StatusDisplayName string `json:"statusDisplayName,omitempty"`

	ScreeningCompletedAt       string `json:"screeningCompletedAt,omitempty"`
	ScreeningCompletedByName   string `json:"screeningCompletedByName,omitempty"`
	ScreeningNotes             string `json:"screeningNotes,omitempty"`
	OrientationCompletedAt     string `json:"orientationCompletedAt,omitempty"`
	OrientationCompletedByName string `json:"orientationCompletedByName,omitempty"`
	OrientationNotes           string `json:"orientationNotes,omitempty"`
	EnrolledAt                 string `json:"enrolledAt,omitempty"`
	EnrolledByName             string `json:"enrolledByName,omitempty"`
	TrainingBatchID            *int64 `json:"trainingBatchId,omitempty"`
	TrainingBatchCode          string `json:"trainingBatchCode,omitempty"`
	TrainingName               string `json:"trainingName,omitempty"`
	EnrollmentNotes            string `json:"enrollmentNotes,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// CandidateName returns the candidate's full name.
func (w Workflow) CandidateName() string {
	switch {
	case w.FirstName == "":
		return w.LastName
	case w.LastName == "":
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}

// WorkflowStats counts candidates per workflow stage.
type WorkflowStats struct {
	PendingScreening   int `json:"pendingScreening" yaml:"pending_screening"`
	PendingOrientation int `json:"pendingOrientation" yaml:"pending_orientation"`
	PendingEnroll      int `json:"pendingEnroll" yaml:"pending_enroll"`
	Enrolled           int `json:"enrolled" yaml:"enrolled"`
	OnHold             int `json:"onHold" yaml:"on_hold"`
}

// ScreeningUpdate records the outcome of a screening interview.
type ScreeningUpdate struct {
	WorkflowID int64  `json:"candidateWorkflowId"`
	Notes      string `json:"notes"`
	Approved   bool   `json:"approved"`
}

// OrientationUpdate records whether a candidate attended orientation.
type OrientationUpdate struct {
	WorkflowID int64  `json:"candidateWorkflowId"`
	Notes      string `json:"notes"`
	Completed  bool   `json:"completed"`
}

// Enrollment places a candidate into a training batch.
type Enrollment struct {
	WorkflowID int64  `json:"candidateWorkflowId"`
	BatchID    int64  `json:"trainingBatchId"`
	Notes      string `json:"notes"`
}

// WorkflowQueue lists the candidates waiting in q.
func (c *Client) WorkflowQueue(ctx context.Context, q Queue) ([]Workflow, error) {
	var items []Workflow
	if err := c.getJSON(ctx, q.path(), SchemaWorkflowList, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// WorkflowStats returns the per-stage counts.
func (c *Client) WorkflowStats(ctx context.Context) (*WorkflowStats, error) {
	var stats WorkflowStats
	if err := c.getJSON(ctx, PathScreeningStats, SchemaWorkflowStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Workflow fetches one workflow by ID.
func (c *Client) Workflow(ctx context.Context, id int64) (*Workflow, error) {
	var w Workflow
	if err := c.getJSON(ctx, pathWorkflowPrefix+strconv.FormatInt(id, 10), SchemaWorkflow, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// CompleteScreening records a screening outcome on behalf of adminID.
func (c *Client) CompleteScreening(ctx context.Context, adminID int64, u ScreeningUpdate) (*Workflow, error) {
	return c.putWorkflow(ctx, PathCompleteScreening, adminID, u)
}

// CompleteOrientation records an orientation outcome on behalf of adminID.
func (c *Client) CompleteOrientation(ctx context.Context, adminID int64, u OrientationUpdate) (*Workflow, error) {
	return c.putWorkflow(ctx, PathCompleteOrientation, adminID, u)
}

// Enroll places a candidate into a training batch on behalf of adminID.
func (c *Client) Enroll(ctx context.Context, adminID int64, e Enrollment) (*Workflow, error) {
	if e.BatchID <= 0 {
		return nil, fmt.Errorf("training batch id must be positive, got %d", e.BatchID)
	}
	return c.putWorkflow(ctx, PathEnroll, adminID, e)
}

func (c *Client) putWorkflow(ctx context.Context, path string, adminID int64, body any) (*Workflow, error) {
	var w Workflow
	err := c.callJSON(ctx, http.MethodPut, path, body, SchemaWorkflow, &w,
		withHeader(HeaderAdminUserID, strconv.FormatInt(adminID, 10)))
	if err != nil {
		return nil, err
	}
	return &w, nil
}
