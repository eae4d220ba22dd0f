package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/b0tShaman/seqnet-go/data"
	. "github.com/b0tShaman/seqnet-go/ml"
)

const (
	numSamples = 600
	numClasses = 3
	inputDim   = 4
	modelFile  = "assets/model.gob"
)

// Generates a toy classification set: each class is a Gaussian blob around
// its own center.
func makeBlobs() (*Matrix, *Matrix) {
	x := NewMatrix(numSamples, inputDim)
	y := NewMatrix(numSamples, numClasses)
	for i := 0; i < numSamples; i++ {
		class := i % numClasses
		for j := 0; j < inputDim; j++ {
			center := float64(class)*2.0 - 2.0
			x.Set(i, j, center+rand.NormFloat64()*0.5)
		}
		y.Set(i, class, 1.0)
	}
	return x, y
}

// Loads a CSV with a trailing class-index label column, normalizes features
// and one-hot encodes labels.
func loadCSVDataset(path string) (*Matrix, *Matrix, error) {
	features, labels, err := data.LoadCSV(path)
	if err != nil {
		return nil, nil, err
	}
	data.MinMaxNormalize(features)
	targets := data.OneHot(labels, numClasses)

	x := NewMatrixFromSlice(len(features), len(features[0]), data.Flatten(features))
	y := NewMatrixFromSlice(len(targets), numClasses, data.Flatten(targets))
	return x, y, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// 1. Build Dataset
	var x, y *Matrix
	if len(os.Args) > 1 {
		var err error
		if x, y, err = loadCSVDataset(os.Args[1]); err != nil {
			log.Fatal().Err(err).Msg("loading dataset")
		}
	} else {
		x, y = makeBlobs()
	}
	rows, cols := x.Dims()
	log.Info().Int("samples", rows).Int("features", cols).Msg("dataset ready")

	// 2. Define Model
	model, err := NewSequential(
		NewInput(cols),
		NewDense(16, WithActivationName("relu")),
		NewDense(numClasses, WithActivationName("softmax")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("building model")
	}

	// 3. Compile
	if err := model.Compile(NewAdam(DefaultAdamConfig), CrossEntropy{}, "accuracy"); err != nil {
		log.Fatal().Err(err).Msg("compiling model")
	}
	log.Info().Int("params", model.CountParams()).Msg("model compiled")

	// 4. Train
	history, err := model.Fit(x, y, FitConfig{
		Epochs:          20,
		BatchSize:       32,
		Verbose:         2,
		ValidationSplit: 0.2,
		Shuffle:         true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("training")
	}
	finalLoss := history["loss"][len(history["loss"])-1]
	log.Info().Float64("loss", finalLoss).Msg("training finished")

	// 5. Evaluate
	testLoss, err := model.Evaluate(x, y, 32)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluating")
	}
	log.Info().Float64("test_loss", testLoss).Msg("evaluation finished")

	// 6. Predict a few samples
	preds, err := model.Predict(x.Rows(0, numClasses), numClasses)
	if err != nil {
		log.Fatal().Err(err).Msg("predicting")
	}
	for i := 0; i < numClasses; i++ {
		row := preds.Data()[i*numClasses : (i+1)*numClasses]
		log.Info().Int("sample", i).
			Int("class", Sample(row, SamplingGreedy, 0)).
			Int("topk_class", Sample(row, SamplingTopK, 2)).
			Msg("prediction")
	}

	// 7. Persist
	if err := os.MkdirAll("assets", 0o755); err == nil {
		if err := model.Save(modelFile); err != nil {
			log.Warn().Err(err).Msg("saving model")
		} else {
			log.Info().Str("path", modelFile).Msg("model saved")
		}
	}
}
