// Command train runs the full classification pipeline: it loads a labeled
// image folder, encodes and splits the dataset, fine-tunes a classification
// head on top of a frozen ONNX backbone, and writes evaluation artifacts and
// a model checkpoint to the output directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/cortexlab/mriclass/checkpoints"
	"github.com/cortexlab/mriclass/extractor"
	"github.com/cortexlab/mriclass/training"
	"github.com/cortexlab/mriclass/vision/augment"
	"github.com/cortexlab/mriclass/vision/dataset"
	"github.com/cortexlab/mriclass/vision/preprocessing"
)

type config struct {
	dataDir   string
	modelPath string
	outDir    string

	imageSize int
	batchSize int
	epochs    int
	holdout   float64
	seed      int64

	hiddenUnits  int
	dropout      float64
	learningRate float64
	featureSize  int

	plotURL  string
	gridRows int
	gridCols int
	progress bool
}

func parseConfig() config {
	// .env is optional; flags take precedence over environment values.
	_ = godotenv.Load()

	var cfg config
	flag.StringVar(&cfg.dataDir, "data", envString("MRICLASS_DATA", "./data"), "root directory of per-class image folders")
	flag.StringVar(&cfg.modelPath, "model", envString("MRICLASS_MODEL", "backbone.onnx"), "path to the frozen ONNX backbone")
	flag.StringVar(&cfg.outDir, "out", envString("MRICLASS_OUT", "./artifacts"), "output directory for artifacts")
	flag.IntVar(&cfg.imageSize, "image-size", envInt("MRICLASS_IMAGE_SIZE", 224), "square input resolution")
	flag.IntVar(&cfg.batchSize, "batch", envInt("MRICLASS_BATCH", 32), "training batch size")
	flag.IntVar(&cfg.epochs, "epochs", envInt("MRICLASS_EPOCHS", 10), "training epochs")
	flag.Float64Var(&cfg.holdout, "holdout", 0.30, "fraction held out and split evenly into validation and test")
	flag.Int64Var(&cfg.seed, "seed", 42, "random seed for splitting and augmentation")
	flag.IntVar(&cfg.hiddenUnits, "hidden", 128, "hidden units in the classification head")
	flag.Float64Var(&cfg.dropout, "dropout", 0.5, "dropout rate in the classification head")
	flag.Float64Var(&cfg.learningRate, "lr", 0.001, "Adam learning rate")
	flag.IntVar(&cfg.featureSize, "features", envInt("MRICLASS_FEATURES", 1280), "backbone feature vector width")
	flag.StringVar(&cfg.plotURL, "plot-url", envString("MRICLASS_PLOT_URL", ""), "plotting sidecar base URL (empty disables)")
	flag.IntVar(&cfg.gridRows, "grid-rows", 4, "sample grid rows")
	flag.IntVar(&cfg.gridCols, "grid-cols", 4, "sample grid columns")
	flag.BoolVar(&cfg.progress, "progress", true, "render a per-epoch progress bar")
	flag.Parse()

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	cfg := parseConfig()

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config) error {
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Load every decodable image into memory up front. Corrupt files are
	// skipped and counted; an empty dataset is fatal.
	ds, err := dataset.NewImageFolderDataset(cfg.dataDir, nil)
	if err != nil {
		return err
	}
	log.Println(ds)

	proc := preprocessing.NewProcessor(cfg.imageSize)
	samples, skipped, err := dataset.LoadIntoMemory(ds, proc)
	if err != nil {
		return err
	}
	log.Printf("loaded %d images (%d skipped)", len(samples), skipped)

	rawLabels := make([]string, len(samples))
	images := make([]*preprocessing.Image, len(samples))
	for i, s := range samples {
		rawLabels[i] = s.Label
		images[i] = s.Image
	}

	codec, err := dataset.NewLabelCodec(rawLabels)
	if err != nil {
		return err
	}
	encoded, err := codec.EncodeAll(rawLabels)
	if err != nil {
		return err
	}
	log.Printf("classes: %v", codec.Classes())

	// Dump the full encoded dataset before splitting.
	allData, err := preprocessing.Stack(images)
	if err != nil {
		return err
	}
	shape := []int{len(images), preprocessing.Channels, cfg.imageSize, cfg.imageSize}
	if err := checkpoints.SaveArrays(filepath.Join(cfg.outDir, "arrays"), allData, shape, encoded, codec.Classes()); err != nil {
		return err
	}

	split, err := dataset.TrainValTestSplit(len(samples), dataset.SplitConfig{
		Holdout: cfg.holdout,
		Seed:    cfg.seed,
	})
	if err != nil {
		return err
	}
	log.Printf("split: train=%d val=%d test=%d", len(split.Train), len(split.Val), len(split.Test))

	trainImages, trainLabels := gather(images, encoded, split.Train)
	valSet, err := buildSet(images, encoded, split.Val)
	if err != nil {
		return fmt.Errorf("validation set: %w", err)
	}
	testSet, err := buildSet(images, encoded, split.Test)
	if err != nil {
		return fmt.Errorf("test set: %w", err)
	}

	stream, err := augment.NewStream(trainImages, trainLabels, cfg.batchSize, augment.DefaultRanges(), cfg.seed)
	if err != nil {
		return err
	}

	extractorConfig := extractor.DefaultConfig(cfg.modelPath)
	extractorConfig.ImageSize = cfg.imageSize
	extractorConfig.BatchSize = cfg.batchSize
	extractorConfig.FeatureSize = cfg.featureSize

	backbone, err := extractor.NewONNXExtractor(extractorConfig)
	if err != nil {
		return err
	}
	defer backbone.Close()

	classifierConfig := training.DefaultClassifierConfig()
	classifierConfig.HiddenUnits = cfg.hiddenUnits
	classifierConfig.Dropout = float32(cfg.dropout)
	classifierConfig.Optimizer.LearningRate = float32(cfg.learningRate)
	classifierConfig.Seed = cfg.seed
	classifierConfig.Progress = cfg.progress

	classifier, err := training.NewClassifier(backbone, codec.NumClasses(), classifierConfig)
	if err != nil {
		return err
	}

	collector := training.NewVisualizationCollector("mri-classifier")
	classifier.SetCollector(collector)

	stepsPerEpoch := len(trainLabels) / cfg.batchSize
	if stepsPerEpoch == 0 {
		stepsPerEpoch = 1
	}

	history, err := classifier.Fit(stream, valSet, cfg.epochs, stepsPerEpoch)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	log.Printf("trained %d epochs, final val_acc=%.4f", history.Epochs(),
		history.ValAccuracy[len(history.ValAccuracy)-1])

	testResult, err := classifier.Evaluate(testSet)
	if err != nil {
		return fmt.Errorf("test evaluation failed: %w", err)
	}
	log.Printf("test: loss=%.4f acc=%.4f", testResult.Loss, testResult.Accuracy)

	// Confusion matrix and per-class ROC over the test set.
	probs, err := classifier.Predict(testSet.Data, testSet.N)
	if err != nil {
		return fmt.Errorf("test prediction failed: %w", err)
	}

	confusion, err := training.NewConfusionMatrix(codec.NumClasses())
	if err != nil {
		return err
	}
	if err := confusion.UpdateFromProbs(probs, testSet.Labels); err != nil {
		return err
	}
	log.Printf("macro: precision=%.4f recall=%.4f f1=%.4f",
		confusion.MacroPrecision(), confusion.MacroRecall(), confusion.MacroF1())

	curves, aucs, err := training.MulticlassROC(probs, testSet.Labels, codec.NumClasses())
	if err != nil {
		return err
	}
	for class, auc := range aucs {
		name, _ := codec.ClassName(class)
		log.Printf("AUC %s: %.4f", name, auc)
	}

	collector.RecordROC(curves, aucs)
	collector.RecordConfusionMatrix(confusion.Matrix, codec.Classes())

	if err := emitPlots(cfg, collector); err != nil {
		return err
	}

	preds := training.ArgMaxRows(probs, testSet.N, codec.NumClasses())
	if err := checkpoints.SaveSampleGrid(cfg.outDir, testSet.Data, cfg.imageSize,
		testSet.Labels, preds, codec.Classes(), cfg.gridRows, cfg.gridCols); err != nil {
		return err
	}

	return saveCheckpoints(cfg, classifier, codec, history, stepsPerEpoch)
}

// gather selects the images and labels addressed by split indices.
func gather(images []*preprocessing.Image, labels []int, indices []int) ([]*preprocessing.Image, []int) {
	outImages := make([]*preprocessing.Image, len(indices))
	outLabels := make([]int, len(indices))
	for i, idx := range indices {
		outImages[i] = images[idx]
		outLabels[i] = labels[idx]
	}
	return outImages, outLabels
}

// buildSet stacks a split subset into a contiguous evaluation set.
func buildSet(images []*preprocessing.Image, labels []int, indices []int) (*training.Set, error) {
	subset, subsetLabels := gather(images, labels, indices)
	data, err := preprocessing.Stack(subset)
	if err != nil {
		return nil, err
	}
	return training.NewSet(data, subsetLabels)
}

// emitPlots writes all plot payloads to disk and, when a sidecar URL is
// configured and healthy, posts them there as well.
func emitPlots(cfg config, collector *training.VisualizationCollector) error {
	plots := []training.PlotData{
		collector.GenerateTrainingCurvesPlot(),
		collector.GenerateLearningRatePlot(),
		collector.GenerateROCCurvePlot(),
		collector.GenerateConfusionMatrixPlot(),
	}

	plotDir := filepath.Join(cfg.outDir, "plots")
	for _, plot := range plots {
		if plot.PlotType == "" {
			continue
		}
		if _, err := training.WritePlotFile(plotDir, plot); err != nil {
			return err
		}
	}

	if cfg.plotURL == "" {
		return nil
	}

	serviceConfig := training.DefaultPlottingServiceConfig()
	serviceConfig.BaseURL = cfg.plotURL
	service := training.NewPlottingService(serviceConfig)

	if err := service.CheckHealth(); err != nil {
		log.Printf("plotting sidecar unavailable, wrote JSON only: %v", err)
		return nil
	}
	service.Enable()

	for _, plot := range plots {
		if plot.PlotType == "" {
			continue
		}
		resp, err := service.SendPlotData(plot)
		if err != nil {
			log.Printf("failed to send %s plot: %v", plot.PlotType, err)
			continue
		}
		if resp.ViewURL != "" {
			log.Printf("%s plot: %s", plot.PlotType, resp.ViewURL)
		}
	}

	return nil
}

// saveCheckpoints writes the trained head in both JSON and binary form.
func saveCheckpoints(cfg config, classifier *training.Classifier, codec *dataset.LabelCodec, history *training.History, stepsPerEpoch int) error {
	state := checkpoints.TrainingState{
		Epoch:        history.Epochs(),
		LearningRate: float32(cfg.learningRate),
		TotalSteps:   history.Epochs() * stepsPerEpoch,
	}
	for i := range history.ValLoss {
		if i == 0 || history.ValLoss[i] < state.BestLoss {
			state.BestLoss = history.ValLoss[i]
		}
		if history.ValAccuracy[i] > state.BestAccuracy {
			state.BestAccuracy = history.ValAccuracy[i]
		}
	}

	checkpoint, err := checkpoints.FromHead(classifier.Head(), codec.Classes(), cfg.imageSize, state)
	if err != nil {
		return err
	}

	jsonSaver := checkpoints.NewCheckpointSaver(checkpoints.FormatJSON)
	if err := jsonSaver.SaveCheckpoint(checkpoint, filepath.Join(cfg.outDir, "model.json")); err != nil {
		return err
	}

	protoSaver := checkpoints.NewCheckpointSaver(checkpoints.FormatProto)
	if err := protoSaver.SaveCheckpoint(checkpoint, filepath.Join(cfg.outDir, "model.pb")); err != nil {
		return err
	}

	log.Printf("checkpoint saved: run %s", checkpoint.Metadata.RunID)
	return nil
}
