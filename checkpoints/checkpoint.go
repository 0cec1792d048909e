// Package checkpoints persists trained classifier state and the evaluation
// artifacts produced alongside it: model checkpoints in JSON or binary
// protobuf form, array dumps of the encoded dataset, and sample prediction
// grids.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cortexlab/mriclass/training"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatJSON CheckpointFormat = iota
	FormatProto
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatProto:
		return "Proto"
	default:
		return "Unknown"
	}
}

// Checkpoint represents a complete classifier state: the label vocabulary,
// input geometry, head weights, and training metadata.
type Checkpoint struct {
	// Label vocabulary in encoding order and the square input side length.
	ClassNames []string `json:"class_names"`
	ImageSize  int      `json:"image_size"`

	// Head architecture and weights.
	HiddenUnits int            `json:"hidden_units"`
	Weights     []WeightTensor `json:"weights"`

	// Training state
	TrainingState TrainingState `json:"training_state"`

	// Metadata
	Metadata CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Type  string    `json:"type"` // "weight" or "bias"
}

// TrainingState captures the training progress at save time
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	LearningRate float32 `json:"learning_rate"`
	BestLoss     float64 `json:"best_loss"`
	BestAccuracy float64 `json:"best_accuracy"`
	TotalSteps   int     `json:"total_steps"`
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// FromHead builds a checkpoint from a trained head and its label vocabulary.
func FromHead(head *training.Head, classNames []string, imageSize int, state TrainingState) (*Checkpoint, error) {
	if head == nil {
		return nil, fmt.Errorf("head is required")
	}
	if len(classNames) != head.NumClasses() {
		return nil, fmt.Errorf("class name count %d does not match head output width %d",
			len(classNames), head.NumClasses())
	}

	params := head.Params()
	shapes := [][]int{
		{head.InFeatures(), head.HiddenUnits()},
		{head.HiddenUnits()},
		{head.HiddenUnits(), head.NumClasses()},
		{head.NumClasses()},
	}
	names := []string{"dense1.weight", "dense1.bias", "dense2.weight", "dense2.bias"}
	kinds := []string{"weight", "bias", "weight", "bias"}

	weights := make([]WeightTensor, len(params))
	for i, p := range params {
		data := make([]float32, len(p))
		copy(data, p)
		weights[i] = WeightTensor{
			Name:  names[i],
			Shape: shapes[i],
			Data:  data,
			Type:  kinds[i],
		}
	}

	return &Checkpoint{
		ClassNames:    append([]string(nil), classNames...),
		ImageSize:     imageSize,
		HiddenUnits:   head.HiddenUnits(),
		Weights:       weights,
		TrainingState: state,
		Metadata: CheckpointMetadata{
			RunID:     uuid.New().String(),
			Version:   "1.0.0",
			Framework: "mriclass",
			CreatedAt: time.Now(),
		},
	}, nil
}

// RestoreHead loads the checkpoint's weights into an existing head with
// matching dimensions.
func (c *Checkpoint) RestoreHead(head *training.Head) error {
	if len(c.Weights) != 4 {
		return fmt.Errorf("expected 4 weight tensors, got %d", len(c.Weights))
	}
	params := make([][]float32, len(c.Weights))
	for i, w := range c.Weights {
		params[i] = w.Data
	}
	if err := head.SetParams(params); err != nil {
		return fmt.Errorf("failed to restore head weights: %w", err)
	}
	return nil
}

// CheckpointSaver handles saving model checkpoints in various formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver for the specified format
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{
		format: format,
	}
}

// SaveCheckpoint saves a complete model checkpoint
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	switch cs.format {
	case FormatJSON:
		return cs.saveJSON(checkpoint, path)
	case FormatProto:
		return cs.saveProto(checkpoint, path)
	default:
		return fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// LoadCheckpoint loads a model checkpoint
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	switch cs.format {
	case FormatJSON:
		return cs.loadJSON(path)
	case FormatProto:
		return cs.loadProto(path)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

func (cs *CheckpointSaver) saveJSON(checkpoint *Checkpoint, path string) error {
	ensureMetadata(checkpoint)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(checkpoint); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	return nil
}

func (cs *CheckpointSaver) loadJSON(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// saveProto writes the checkpoint as a binary protobuf Struct. The JSON field
// layout is reused so the two formats stay interchangeable.
func (cs *CheckpointSaver) saveProto(checkpoint *Checkpoint, path string) error {
	ensureMetadata(checkpoint)

	jsonData, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(jsonData, &fields); err != nil {
		return fmt.Errorf("failed to build checkpoint field map: %w", err)
	}

	pb, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("failed to build checkpoint struct: %w", err)
	}

	data, err := proto.Marshal(pb)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	return nil
}

func (cs *CheckpointSaver) loadProto(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}

	jsonData, err := pb.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to convert checkpoint struct: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(jsonData, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &checkpoint, nil
}

func ensureMetadata(checkpoint *Checkpoint) {
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "mriclass"
		checkpoint.Metadata.Version = "1.0.0"
	}
	if checkpoint.Metadata.RunID == "" {
		checkpoint.Metadata.RunID = uuid.New().String()
	}
	if checkpoint.Metadata.CreatedAt.IsZero() {
		checkpoint.Metadata.CreatedAt = time.Now()
	}
}
