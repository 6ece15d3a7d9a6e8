package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stage names one step of the pipeline
type Stage string

const (
	StageSelect     Stage = "select"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StageRender     Stage = "render"
	StageCombine    Stage = "combine"
	StagePublish    Stage = "publish"
)

var (
	ErrSelection  = errors.New("topic selection failed")
	ErrGeneration = errors.New("script generation failed")
	ErrSynthesis  = errors.New("narration synthesis failed")
	ErrRender     = errors.New("scene render failed")
	ErrCombine    = errors.New("combine failed")
	ErrPublish    = errors.New("publish failed")
)

var stageSentinels = map[Stage]error{
	StageSelect:     ErrSelection,
	StageGenerate:   ErrGeneration,
	StageSynthesize: ErrSynthesis,
	StageRender:     ErrRender,
	StageCombine:    ErrCombine,
	StagePublish:    ErrPublish,
}

// StageError is a failure attributed to one stage.
// errors.Is matches both the wrapped cause and the stage's sentinel.
type StageError struct {
	Stage Stage
	Cause error
}

// NewStageError wraps cause for stage; nil cause yields nil
func NewStageError(stage Stage, cause error) *StageError {
	if cause == nil {
		return nil
	}
	var se *StageError
	if errors.As(cause, &se) && se.Stage == stage {
		return se
	}
	return &StageError{Stage: stage, Cause: cause}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for this stage
func (e *StageError) Is(target error) bool {
	sentinel, ok := stageSentinels[e.Stage]
	return ok && target == sentinel
}

type stageErrorJSON struct {
	Stage Stage  `json:"stage"`
	Cause string `json:"cause"`
}

// MarshalJSON renders {stage, cause}, the shape the REST boundary returns
func (e *StageError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(stageErrorJSON{Stage: e.Stage, Cause: cause})
}

func (e *StageError) UnmarshalJSON(data []byte) error {
	var raw stageErrorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Stage = raw.Stage
	e.Cause = errors.New(raw.Cause)
	return nil
}
