package orientation

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/imaging"
	"github.com/ironsheep/idphoto-mcp/internal/logging"
	"github.com/ironsheep/idphoto-mcp/internal/ocr"
)

// Angles are the orientations tried, in trial order.
var Angles = [4]int{0, 90, 180, 270}

// Scoring constants. These are empirically tuned; keep them exact.
const (
	GoodConfidence  = 50.0
	GreatConfidence = 70.0

	GreatWordWeight    = 30.0
	GoodWordWeight     = 15.0
	ConfidenceWeight   = 2.0
	AlphanumericWeight = 3.0

	// ImprovementRatio is how much a non-zero angle must beat the runner-up
	// by when it has fewer than MinGoodWords good words.
	ImprovementRatio = 1.15
	MinGoodWords     = 2

	// DefaultMaxSide bounds the longer side of the image given to the
	// recognizer.
	DefaultMaxSide = 1500

	sampleTextLength = 150
)

// Outcome is the decision reached for a page.
type Outcome string

const (
	// OutcomeAlreadyCorrect means the upright page scored best.
	OutcomeAlreadyCorrect Outcome = "already_correct"

	// OutcomeCorrected means the page was rotated to the best angle.
	OutcomeCorrected Outcome = "corrected"

	// OutcomeAmbiguous means a non-zero angle scored best but not clearly
	// enough, so the page was left alone.
	OutcomeAmbiguous Outcome = "ambiguous"

	// OutcomeFailed means the recognizer failed and the page was left alone.
	OutcomeFailed Outcome = "failed"
)

// Trial is the scored recognition result for one angle.
type Trial struct {
	Angle             int     `json:"angle"`
	Score             float64 `json:"score"`
	WordCount         int     `json:"word_count"`
	GoodWords         int     `json:"good_words"`
	GreatWords        int     `json:"great_words"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AlphanumericCount int     `json:"alphanumeric_count"`
	SampleText        string  `json:"sample_text"`
}

// Result is the outcome of resolving one page.
type Result struct {
	// Image is the page to continue with: rotated when Outcome is
	// OutcomeCorrected, otherwise the input image itself.
	Image image.Image `json:"-"`

	Outcome Outcome `json:"outcome"`

	// Angle is the clockwise rotation applied to the page (0 unless
	// corrected).
	Angle int `json:"angle"`

	// BestAngle is the highest-scoring angle, whether or not it was applied.
	BestAngle int `json:"best_angle"`

	// Trials holds the completed trials ranked best first.
	Trials []Trial `json:"trials"`
}

// Corrected reports whether the page was rotated.
func (r *Result) Corrected() bool {
	return r.Outcome == OutcomeCorrected
}

// Options configures a Resolver.
type Options struct {
	// MaxSide is the longest side, in pixels, of the recognizer's input.
	// Zero means DefaultMaxSide.
	MaxSide int
}

// Resolver picks the most readable of four page orientations.
type Resolver struct {
	recognizer ocr.Recognizer
	maxSide    int
	logger     *logging.Logger
}

// NewResolver creates a resolver backed by the given recognizer.
func NewResolver(recognizer ocr.Recognizer, opts Options) *Resolver {
	maxSide := opts.MaxSide
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Resolver{
		recognizer: recognizer,
		maxSide:    maxSide,
		logger:     logging.NewLogger("orientation"),
	}
}

// Resolve runs one recognition trial per angle on a downscaled, OCR-ready
// copy of img and decides whether to rotate img.
//
// Trials run sequentially in the order of Angles. If any trial fails, the
// whole resolution is abandoned: the returned Result carries the unmodified
// img with OutcomeFailed, together with a RecognitionFailure error. Callers
// should treat that error as a warning and continue with Result.Image.
func (r *Resolver) Resolve(ctx context.Context, img image.Image) (*Result, error) {
	prepared := imaging.ToOCRReady(imaging.Downscale(img, r.maxSide))

	trials := make([]Trial, 0, len(Angles))
	for _, angle := range Angles {
		trial, err := r.runTrial(ctx, prepared, angle)
		if err != nil {
			r.logger.Warn("Orientation trial failed, keeping original",
				"angle", angle,
				"error", err,
			)
			return &Result{
				Image:   img,
				Outcome: OutcomeFailed,
				Trials:  Rank(trials),
			}, pipelineerrors.NewRecognitionFailureError(angle, err)
		}
		r.logger.Debug("Orientation trial scored",
			"angle", trial.Angle,
			"score", trial.Score,
			"good_words", trial.GoodWords,
			"great_words", trial.GreatWords,
			"avg_confidence", trial.AvgConfidence,
			"alphanumeric", trial.AlphanumericCount,
		)
		trials = append(trials, trial)
	}

	ranked := Rank(trials)
	r.logRanking(ranked)

	outcome, angle := Decide(ranked)
	result := &Result{
		Image:     img,
		Outcome:   outcome,
		BestAngle: ranked[0].Angle,
		Trials:    ranked,
	}

	if outcome == OutcomeCorrected {
		rotated, err := imaging.Rotate(img, angle)
		if err != nil {
			return nil, fmt.Errorf("failed to rotate page: %w", err)
		}
		result.Image = rotated
		result.Angle = angle
	}

	r.logger.Info("Orientation resolved",
		"outcome", string(outcome),
		"angle", result.Angle,
		"best_angle", result.BestAngle,
	)
	return result, nil
}

func (r *Resolver) runTrial(ctx context.Context, prepared image.Image, angle int) (Trial, error) {
	if err := ctx.Err(); err != nil {
		return Trial{}, err
	}

	candidate := prepared
	if angle != 0 {
		rotated, err := imaging.Rotate(prepared, angle)
		if err != nil {
			return Trial{}, err
		}
		candidate = rotated
	}

	res, err := r.recognizer.Recognize(ctx, candidate)
	if err != nil {
		return Trial{}, err
	}
	if res == nil {
		res = &ocr.Result{}
	}
	return ScoreTrial(angle, res), nil
}

func (r *Resolver) logRanking(ranked []Trial) {
	for i, t := range ranked {
		r.logger.Info("Orientation ranking",
			"rank", i+1,
			"angle", t.Angle,
			"score", fmt.Sprintf("%.1f", t.Score),
			"good_words", t.GoodWords,
			"great_words", t.GreatWords,
			"avg_confidence", fmt.Sprintf("%.1f", t.AvgConfidence),
			"sample", t.SampleText,
		)
	}
}

// ScoreTrial computes the readability metrics and score for one recognition
// result:
//
//	score = 30*greatWords + 15*goodWords + 2*avgConfidence + 3*alphanumericCount
//
// where good and great words have confidence above 50 and 70, and
// avgConfidence is the mean confidence of the good words (0 if none).
func ScoreTrial(angle int, res *ocr.Result) Trial {
	var good []float64
	great := 0
	for _, w := range res.Words {
		if w.Confidence > GoodConfidence {
			good = append(good, w.Confidence)
		}
		if w.Confidence > GreatConfidence {
			great++
		}
	}

	avg := 0.0
	if len(good) > 0 {
		avg = stat.Mean(good, nil)
	}

	alnum := countAlphanumeric(res.FullText)

	return Trial{
		Angle:             angle,
		WordCount:         len(res.Words),
		GoodWords:         len(good),
		GreatWords:        great,
		AvgConfidence:     avg,
		AlphanumericCount: alnum,
		SampleText:        sample(res.FullText),
		Score: GreatWordWeight*float64(great) +
			GoodWordWeight*float64(len(good)) +
			ConfidenceWeight*avg +
			AlphanumericWeight*float64(alnum),
	}
}

// Rank returns the trials sorted by score, highest first. Equal scores
// keep the lower angle first. The input is not modified.
func Rank(trials []Trial) []Trial {
	ranked := make([]Trial, len(trials))
	copy(ranked, trials)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Angle < ranked[j].Angle
	})
	return ranked
}

// Decide applies the rotation rule to ranked trials and returns the outcome
// and the angle to rotate by.
//
// A non-zero best angle is applied only if it beats the runner-up by more
// than ImprovementRatio or has at least MinGoodWords good words.
func Decide(ranked []Trial) (Outcome, int) {
	if len(ranked) == 0 {
		return OutcomeFailed, 0
	}
	best := ranked[0]
	if best.Angle == 0 {
		return OutcomeAlreadyCorrect, 0
	}

	secondScore := 0.0
	if len(ranked) > 1 {
		secondScore = ranked[1].Score
	}
	if best.Score > secondScore*ImprovementRatio || best.GoodWords >= MinGoodWords {
		return OutcomeCorrected, best.Angle
	}
	return OutcomeAmbiguous, 0
}

func countAlphanumeric(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			n++
		}
	}
	return n
}

// sample returns the first characters of text, trimmed, for logging.
func sample(text string) string {
	r := []rune(text)
	if len(r) > sampleTextLength {
		r = r[:sampleTextLength]
	}
	return strings.TrimSpace(string(r))
}
