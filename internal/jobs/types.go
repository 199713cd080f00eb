package jobs

const TaskFeedbackNotify = "feedback:notify"

type FeedbackNotifyPayload struct {
	FeedbackID string `json:"feedback_id"`
}
