package dataset

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cortexlab/mriclass/vision/preprocessing"
)

// ImageFolderDataset represents a dataset discovered from a directory
// structure where each immediate subdirectory is a class.
type ImageFolderDataset struct {
	imagePaths []string
	labels     []string
	classNames []string
}

// NewImageFolderDataset scans a root directory for per-class subfolders.
// Non-directory entries at the root are skipped. The enumeration order of
// files follows the filesystem and is not guaranteed stable across platforms.
func NewImageFolderDataset(root string, extensions []string) (*ImageFolderDataset, error) {
	if len(extensions) == 0 {
		extensions = []string{".jpg", ".jpeg", ".png", ".bmp"}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}

	dataset := &ImageFolderDataset{}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		className := entry.Name()
		classDir := filepath.Join(root, className)
		dataset.classNames = append(dataset.classNames, className)

		files, err := os.ReadDir(classDir)
		if err != nil {
			continue
		}

		for _, file := range files {
			if file.IsDir() || !hasExtension(file.Name(), extensions) {
				continue
			}
			dataset.imagePaths = append(dataset.imagePaths, filepath.Join(classDir, file.Name()))
			dataset.labels = append(dataset.labels, className)
		}
	}

	if len(dataset.imagePaths) == 0 {
		return nil, fmt.Errorf("no images found in %s", root)
	}

	return dataset, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Len returns the number of discovered image files.
func (d *ImageFolderDataset) Len() int {
	return len(d.imagePaths)
}

// GetItem returns the image path and class name at the given index.
func (d *ImageFolderDataset) GetItem(index int) (string, string, error) {
	if index < 0 || index >= len(d.imagePaths) {
		return "", "", fmt.Errorf("index %d out of range [0, %d)", index, len(d.imagePaths))
	}
	return d.imagePaths[index], d.labels[index], nil
}

// NumClasses returns the number of class subdirectories found.
func (d *ImageFolderDataset) NumClasses() int {
	return len(d.classNames)
}

// ClassNames returns the class names in discovery order.
func (d *ImageFolderDataset) ClassNames() []string {
	names := make([]string, len(d.classNames))
	copy(names, d.classNames)
	return names
}

// ClassDistribution returns the number of discovered files per class.
func (d *ImageFolderDataset) ClassDistribution() map[string]int {
	dist := make(map[string]int)
	for _, label := range d.labels {
		dist[label]++
	}
	return dist
}

// String returns a human-readable dataset summary.
func (d *ImageFolderDataset) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ImageFolderDataset: %d files, %d classes\n", len(d.imagePaths), len(d.classNames)))
	dist := d.ClassDistribution()
	for _, className := range d.classNames {
		sb.WriteString(fmt.Sprintf("  %s: %d files\n", className, dist[className]))
	}
	return sb.String()
}

// Sample pairs a decoded image tensor with its class name. Samples are
// immutable once loaded.
type Sample struct {
	Image *preprocessing.Image
	Label string
}

// LoadIntoMemory decodes every discovered file at the processor's target
// resolution and keeps all of it resident. Files that fail to decode are
// skipped and counted rather than treated as fatal; real-world folders tend
// to contain the odd truncated or mislabeled file. Decoding nothing at all is
// an error because no downstream stage can proceed without data.
//
// The full-dataset load is a scalability ceiling: beyond memory-resident
// datasets this should become a chunked loader over stored indices.
func LoadIntoMemory(d *ImageFolderDataset, proc *preprocessing.Processor) ([]Sample, int, error) {
	samples := make([]Sample, 0, d.Len())
	skipped := 0

	for i := 0; i < d.Len(); i++ {
		path, label, err := d.GetItem(i)
		if err != nil {
			return nil, skipped, err
		}

		img, err := proc.DecodeFile(path)
		if err != nil {
			skipped++
			continue
		}

		samples = append(samples, Sample{Image: img, Label: label})
	}

	if skipped > 0 {
		log.Printf("skipped %d undecodable image(s)", skipped)
	}

	if len(samples) == 0 {
		return nil, skipped, fmt.Errorf("no decodable images in dataset (%d files skipped)", skipped)
	}

	return samples, skipped, nil
}
