package batch

import "fmt"

// Status enumerates the pipeline states of an item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InputFile is one user-supplied document.
type InputFile struct {
	Name string
	Data []byte
}

// Output is a successfully upgraded document.
type Output struct {
	Name string
	Data []byte
}

// Item is an InputFile plus its pipeline state. Values handed out by Batch
// are snapshots; mutating them has no effect on the batch.
type Item struct {
	Input           InputFile
	Status          Status
	DetectedVersion string
	ErrorDetail     string
	OutputName      string
}

// Name returns the original input name.
func (it *Item) Name() string { return it.Input.Name }

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusError},
}

// transition moves the item to next, refusing moves the state machine
// does not allow.
func (it *Item) transition(next Status) error {
	for _, allowed := range transitions[it.Status] {
		if allowed == next {
			it.Status = next
			return nil
		}
	}
	return fmt.Errorf("item %s: illegal transition %s -> %s", it.Input.Name, it.Status, next)
}

func (it *Item) start() error {
	return it.transition(StatusProcessing)
}

func (it *Item) complete(outputName string) error {
	if err := it.transition(StatusCompleted); err != nil {
		return err
	}
	it.OutputName = outputName
	return nil
}

func (it *Item) fail(cause error) error {
	if err := it.transition(StatusError); err != nil {
		return err
	}
	it.ErrorDetail = cause.Error()
	return nil
}
