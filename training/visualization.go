package training

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlotType represents the kinds of diagnostic plots the pipeline can emit.
type PlotType string

const (
	TrainingCurves       PlotType = "training_curves"
	LearningRateSchedule PlotType = "learning_rate_schedule"
	ROCCurvePlot         PlotType = "roc_curve"
	ConfusionMatrixPlot  PlotType = "confusion_matrix"
)

// PlotData is the universal JSON payload consumed by the plotting sidecar.
type PlotData struct {
	PlotType  PlotType  `json:"plot_type"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	ModelName string    `json:"model_name"`

	Series []SeriesData `json:"series"`
	Config PlotConfig   `json:"config"`

	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// SeriesData is a single data series within a plot.
type SeriesData struct {
	Name  string                 `json:"name"`
	Type  string                 `json:"type"` // "line", "scatter", "heatmap"
	Data  []DataPoint            `json:"data"`
	Style map[string]interface{} `json:"style,omitempty"`
}

// DataPoint is one plotted value; Z and Label are used by heatmaps.
type DataPoint struct {
	X     interface{} `json:"x"`
	Y     interface{} `json:"y"`
	Z     interface{} `json:"z,omitempty"`
	Label string      `json:"label,omitempty"`
}

// PlotConfig carries axis labels and rendering hints.
type PlotConfig struct {
	XAxisLabel string `json:"x_axis_label"`
	YAxisLabel string `json:"y_axis_label"`
	ShowLegend bool   `json:"show_legend"`
	ShowGrid   bool   `json:"show_grid"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`

	CustomOptions map[string]interface{} `json:"custom_options,omitempty"`
}

// ToJSON serializes the plot payload with indentation.
func (pd PlotData) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(pd, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plot data: %w", err)
	}
	return data, nil
}

// VisualizationCollector accumulates evaluation data during a run and turns
// it into plot payloads. It never mutates the data handed to it.
type VisualizationCollector struct {
	modelName string

	epochs        []int
	trainLoss     []float64
	trainAccuracy []float64
	valLoss       []float64
	valAccuracy   []float64
	learningRates []float64

	rocCurves  [][]ROCPoint
	rocAUCs    []float64
	confusion  [][]int
	classNames []string
}

// NewVisualizationCollector creates an empty collector for the named model.
func NewVisualizationCollector(modelName string) *VisualizationCollector {
	return &VisualizationCollector{modelName: modelName}
}

// RecordEpoch appends one epoch of training and validation metrics.
func (vc *VisualizationCollector) RecordEpoch(epoch int, trainLoss, trainAcc, valLoss, valAcc float64) {
	vc.epochs = append(vc.epochs, epoch)
	vc.trainLoss = append(vc.trainLoss, trainLoss)
	vc.trainAccuracy = append(vc.trainAccuracy, trainAcc)
	vc.valLoss = append(vc.valLoss, valLoss)
	vc.valAccuracy = append(vc.valAccuracy, valAcc)
}

// RecordLearningRate appends the learning rate used for an epoch.
func (vc *VisualizationCollector) RecordLearningRate(epoch int, lr float64) {
	vc.learningRates = append(vc.learningRates, lr)
}

// RecordROC stores per-class ROC curves with their areas.
func (vc *VisualizationCollector) RecordROC(curves [][]ROCPoint, aucs []float64) {
	vc.rocCurves = curves
	vc.rocAUCs = aucs
}

// RecordConfusionMatrix stores the final confusion matrix with class names
// for axis labeling.
func (vc *VisualizationCollector) RecordConfusionMatrix(matrix [][]int, classNames []string) {
	vc.confusion = matrix
	vc.classNames = classNames
}

// GenerateTrainingCurvesPlot emits the accuracy/loss curves over epochs.
func (vc *VisualizationCollector) GenerateTrainingCurvesPlot() PlotData {
	series := []SeriesData{
		vc.lineSeries("Training Loss", vc.trainLoss, "#FF6B6B", false),
		vc.lineSeries("Training Accuracy", vc.trainAccuracy, "#4ECDC4", false),
		vc.lineSeries("Validation Loss", vc.valLoss, "#FF9F43", true),
		vc.lineSeries("Validation Accuracy", vc.valAccuracy, "#5F27CD", true),
	}

	return PlotData{
		PlotType:  TrainingCurves,
		Title:     fmt.Sprintf("Training Curves - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel: "Epoch",
			YAxisLabel: "Loss / Accuracy",
			ShowLegend: true,
			ShowGrid:   true,
			Width:      800,
			Height:     600,
		},
	}
}

func (vc *VisualizationCollector) lineSeries(name string, values []float64, color string, dashed bool) SeriesData {
	style := map[string]interface{}{
		"color":      color,
		"line_width": 2,
	}
	if dashed {
		style["line_style"] = "dashed"
	}

	data := make([]DataPoint, len(values))
	for i, v := range values {
		data[i] = DataPoint{X: vc.epochs[i], Y: v}
	}

	return SeriesData{Name: name, Type: "line", Data: data, Style: style}
}

// GenerateLearningRatePlot emits the learning rate schedule over epochs.
func (vc *VisualizationCollector) GenerateLearningRatePlot() PlotData {
	data := make([]DataPoint, len(vc.learningRates))
	for i, lr := range vc.learningRates {
		data[i] = DataPoint{X: i + 1, Y: lr}
	}

	return PlotData{
		PlotType:  LearningRateSchedule,
		Title:     fmt.Sprintf("Learning Rate Schedule - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series: []SeriesData{{
			Name: "Learning Rate",
			Type: "line",
			Data: data,
			Style: map[string]interface{}{
				"color":      "#6C5CE7",
				"line_width": 2,
			},
		}},
		Config: PlotConfig{
			XAxisLabel: "Epoch",
			YAxisLabel: "Learning Rate",
			ShowLegend: true,
			ShowGrid:   true,
			Width:      800,
			Height:     400,
		},
	}
}

// GenerateROCCurvePlot emits one series per class plus the chance diagonal.
func (vc *VisualizationCollector) GenerateROCCurvePlot() PlotData {
	var series []SeriesData

	for class, curve := range vc.rocCurves {
		if len(curve) == 0 {
			continue
		}

		name := fmt.Sprintf("class %d", class)
		if class < len(vc.classNames) {
			name = vc.classNames[class]
		}

		data := make([]DataPoint, len(curve))
		for i, point := range curve {
			data[i] = DataPoint{X: point.FPR, Y: point.TPR}
		}

		series = append(series, SeriesData{
			Name: fmt.Sprintf("%s (AUC %.3f)", name, vc.rocAUCs[class]),
			Type: "line",
			Data: data,
			Style: map[string]interface{}{
				"line_width": 2,
			},
		})
	}

	if len(series) > 0 {
		series = append(series, SeriesData{
			Name: "Random Classifier",
			Type: "line",
			Data: []DataPoint{{X: 0.0, Y: 0.0}, {X: 1.0, Y: 1.0}},
			Style: map[string]interface{}{
				"color":      "#95A5A6",
				"line_width": 1,
				"line_style": "dashed",
			},
		})
	}

	return PlotData{
		PlotType:  ROCCurvePlot,
		Title:     fmt.Sprintf("ROC Curves - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel: "False Positive Rate",
			YAxisLabel: "True Positive Rate",
			ShowLegend: true,
			ShowGrid:   true,
			Width:      600,
			Height:     600,
		},
	}
}

// GenerateConfusionMatrixPlot emits the confusion matrix as a heatmap.
func (vc *VisualizationCollector) GenerateConfusionMatrixPlot() PlotData {
	if len(vc.confusion) == 0 {
		return PlotData{}
	}

	var data []DataPoint
	for i, row := range vc.confusion {
		for j, value := range row {
			data = append(data, DataPoint{
				X: j,
				Y: i,
				Z: value,
				Label: fmt.Sprintf("True: %s, Pred: %s",
					vc.className(i), vc.className(j)),
			})
		}
	}

	return PlotData{
		PlotType:  ConfusionMatrixPlot,
		Title:     fmt.Sprintf("Confusion Matrix - %s", vc.modelName),
		Timestamp: time.Now(),
		ModelName: vc.modelName,
		Series: []SeriesData{{
			Name: "Confusion Matrix",
			Type: "heatmap",
			Data: data,
			Style: map[string]interface{}{
				"colorscale": "Blues",
			},
		}},
		Config: PlotConfig{
			XAxisLabel: "Predicted Class",
			YAxisLabel: "True Class",
			Width:      600,
			Height:     600,
			CustomOptions: map[string]interface{}{
				"class_names": vc.classNames,
			},
		},
	}
}

func (vc *VisualizationCollector) className(idx int) string {
	if idx < len(vc.classNames) {
		return vc.classNames[idx]
	}
	return fmt.Sprintf("class %d", idx)
}
