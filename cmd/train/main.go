// Command train fits the logistic classifier and writes the JSON artifact the
// API loads at startup.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"water-quality-api/app"
	"water-quality-api/classifier"
)

func main() {
	var (
		dataPath = flag.String("data", "", "CSV of labelled samples (ph,turbidity,temperature,label); built-in sample set when empty")
		outPath  = flag.String("out", "model.json", "artifact output path")
		version  = flag.String("version", "logistic-v1", "version recorded in the artifact")
		lambda   = flag.Float64("lambda", 0.01, "L2 penalty on the weights")
		maxIter  = flag.Int("max-iter", 0, "optimizer iteration cap, 0 for 500")
	)
	flag.Parse()
	slog.SetDefault(app.NewLogger(os.Getenv("LOG_LEVEL")))

	samples := classifier.SampleData
	if *dataPath != "" {
		f, err := os.Open(*dataPath)
		if err != nil {
			log.Fatalf("Failed to open training data: %v", err)
		}
		samples, err = classifier.ReadSamplesCSV(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to read training data: %v", err)
		}
	}

	artifact, err := classifier.Train(samples, classifier.TrainOptions{
		Version:       *version,
		Lambda:        *lambda,
		MaxIterations: *maxIter,
	})
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	model, err := classifier.FromArtifact(artifact)
	if err != nil {
		log.Fatalf("Trained artifact is invalid: %v", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode artifact: %v", err)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write artifact: %v", err)
	}

	slog.Info("model trained",
		"out", *outPath,
		"version", model.Version(),
		"samples", len(samples),
		"training_accuracy", classifier.Accuracy(model, samples),
	)
}
