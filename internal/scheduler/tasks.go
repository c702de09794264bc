package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSyncCycleRun = "sync.cycle.run"

type SyncCyclePayload struct {
	Trigger string `json:"trigger"`
}

func NewSyncCycleTask(payload SyncCyclePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncCycleRun, data), nil
}

func ParseSyncCyclePayload(task *asynq.Task) (SyncCyclePayload, error) {
	var payload SyncCyclePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncCyclePayload{}, err
	}
	return payload, nil
}
