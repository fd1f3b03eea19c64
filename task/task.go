package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"DistributedFractals/fractal"
	"DistributedFractals/progress"
	"github.com/google/uuid"
)

// ErrAllTasksHandedOut is returned by the coordinator once its queue is empty
var ErrAllTasksHandedOut = errors.New("all tasks handed out")

// Task is one render request travelling between the coordinator and a
// worker. Params holds the JSON parameter record and Payload the encoded
// result once the worker returns it.
type Task struct {
	Error         string
	ID            uint
	Kind          fractal.Kind
	Name          string
	OperationID   string
	Params        []byte
	Payload       []byte
	Status        progress.Status
	WorkerAddress string
}

func NewTask(id uint, name string, kind fractal.Kind, params fractal.Params) (Task, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return Task{}, fmt.Errorf("encoding parameters of task %s: %w", name, err)
	}
	return Task{
		ID:          id,
		Kind:        kind,
		Name:        name,
		OperationID: uuid.New().String(),
		Params:      encoded,
		Status:      progress.Pending,
	}, nil
}

func (t *Task) String() string {
	output := "{Task "
	output += fmt.Sprintf("ID: %d ", t.ID)
	output += fmt.Sprintf("Name: %s ", t.Name)
	output += fmt.Sprintf("Kind: %s ", t.Kind)
	output += fmt.Sprintf("Status: %s ", t.Status)
	output += fmt.Sprintf("Payload Bytes: %d}", len(t.Payload))
	return output
}

// DecodeParams returns the parameter record. Numbers are kept as json.Number
// so integers survive the round trip.
func (t *Task) DecodeParams() (fractal.Params, error) {
	decoder := json.NewDecoder(bytes.NewReader(t.Params))
	decoder.UseNumber()
	var params fractal.Params
	if err := decoder.Decode(&params); err != nil {
		return nil, fmt.Errorf("decoding parameters of task %d: %w", t.ID, err)
	}
	if params == nil {
		params = fractal.Params{}
	}
	return params, nil
}
