package analysis

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultRegularization = 1.0
	DefaultMaxIter        = 1000
	DefaultTolerance      = 1e-6
	interceptRidge        = 1e-10
	maxBacktracks         = 40
)

var errSingularSystem = errors.New("singular hessian")

type LogisticConfig struct {
	C         float64
	MaxIter   int
	Tolerance float64
}

func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{C: DefaultRegularization, MaxIter: DefaultMaxIter, Tolerance: DefaultTolerance}
}

// LogisticModel is an L2-regularised binary classifier with an unpenalised intercept.
type LogisticModel struct {
	Weights    []float64 `json:"weights"`
	Intercept  float64   `json:"intercept"`
	Iterations int       `json:"iterations"`
}

// FitLogistic minimises log-loss + ||w||^2/(2C) with damped Newton steps until the
// largest gradient component drops below the tolerance. Both labels must be present in y.
func FitLogistic(ctx context.Context, X [][]float64, y []int, cfg LogisticConfig) (*LogisticModel, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, insufficient("no training samples")
	}
	if !hasBothLabels(y) {
		return nil, insufficient("training set needs both at-risk and safe records")
	}
	if cfg.C <= 0 {
		cfg.C = DefaultRegularization
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}

	d := len(X[0])
	dim := d + 1 // last coefficient is the intercept
	beta := make([]float64, dim)
	loss := logLoss(X, y, beta, cfg.C)

	iter := 0
	for ; iter < cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		grad, hess := gradientHessian(X, y, beta, cfg.C)
		if floats.Norm(grad, math.Inf(1)) < cfg.Tolerance {
			break
		}
		step, err := solve(hess, grad)
		if err != nil {
			return nil, err
		}

		t := 1.0
		next := make([]float64, dim)
		var nextLoss float64
		accepted := false
		for k := 0; k < maxBacktracks; k++ {
			floats.AddScaledTo(next, beta, -t, step)
			nextLoss = logLoss(X, y, next, cfg.C)
			if nextLoss <= loss {
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			break
		}

		beta, loss = next, nextLoss
	}

	return &LogisticModel{
		Weights:    append([]float64(nil), beta[:d]...),
		Intercept:  beta[d],
		Iterations: iter,
	}, nil
}

// Predict returns P(label = 1 | x).
func (m *LogisticModel) Predict(x []float64) float64 {
	z := m.Intercept
	for i, w := range m.Weights {
		if i < len(x) {
			z += w * x[i]
		}
	}
	return sigmoid(z)
}

func hasBothLabels(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

func linear(x []float64, beta []float64) float64 {
	d := len(beta) - 1
	return floats.Dot(beta[:d], x[:d]) + beta[d]
}

// softplus computes log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func logLoss(X [][]float64, y []int, beta []float64, c float64) float64 {
	var sum float64
	for i, x := range X {
		z := linear(x, beta)
		if y[i] == 1 {
			sum += softplus(-z)
		} else {
			sum += softplus(z)
		}
	}
	w := beta[:len(beta)-1]
	return sum + floats.Dot(w, w)/(2*c)
}

// gradientHessian returns the penalised log-loss gradient and its Hessian X'WX + I/C.
// The intercept gets a tiny ridge so the Hessian stays positive definite.
func gradientHessian(X [][]float64, y []int, beta []float64, c float64) ([]float64, *mat.SymDense) {
	dim := len(beta)
	d := dim - 1
	grad := make([]float64, dim)
	hess := mat.NewSymDense(dim, nil)

	row := make([]float64, dim)
	for i, x := range X {
		copy(row, x)
		row[d] = 1
		p := sigmoid(linear(x, beta))
		floats.AddScaled(grad, p-float64(y[i]), row)
		hess.SymRankOne(hess, p*(1-p), mat.NewVecDense(dim, row))
	}

	for j := 0; j < d; j++ {
		grad[j] += beta[j] / c
		hess.SetSym(j, j, hess.At(j, j)+1/c)
	}
	hess.SetSym(d, d, hess.At(d, d)+interceptRidge)
	return grad, hess
}

// solve returns the Newton step H^-1 g, by Cholesky when H is positive definite
// and by LU otherwise. An ill-conditioned but finite solution is still a usable step.
func solve(hess *mat.SymDense, grad []float64) ([]float64, error) {
	b := mat.NewVecDense(len(grad), grad)
	var step mat.VecDense

	var chol mat.Cholesky
	if chol.Factorize(hess) && usableStep(chol.SolveVecTo(&step, b), &step) {
		return step.RawVector().Data, nil
	}
	if usableStep(step.SolveVec(hess, b), &step) {
		return step.RawVector().Data, nil
	}
	return nil, errSingularSystem
}

func usableStep(err error, step *mat.VecDense) bool {
	if err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return false
		}
	}
	for _, v := range step.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
