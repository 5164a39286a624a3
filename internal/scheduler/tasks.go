package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskNotificationDispatch carries a beacon-delivered arbiter trigger.
const TaskNotificationDispatch = "notification.dispatch"

// TaskLeadAbandonmentCheck is the server-side safety net scheduled when a
// lead is captured.
const TaskLeadAbandonmentCheck = "lead.abandonment_check"

type NotificationDispatchPayload struct {
	LeadID  string `json:"leadId"`
	Trigger string `json:"trigger"`
}

type LeadAbandonmentCheckPayload struct {
	LeadID string `json:"leadId"`
}

func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, data), nil
}

func ParseNotificationDispatchPayload(task *asynq.Task) (NotificationDispatchPayload, error) {
	var payload NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationDispatchPayload{}, err
	}
	return payload, nil
}

func NewLeadAbandonmentCheckTask(payload LeadAbandonmentCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadAbandonmentCheck, data), nil
}

func ParseLeadAbandonmentCheckPayload(task *asynq.Task) (LeadAbandonmentCheckPayload, error) {
	var payload LeadAbandonmentCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadAbandonmentCheckPayload{}, err
	}
	return payload, nil
}
