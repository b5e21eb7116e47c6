package progress

import (
	"context"
	"time"

	imrocreq "github.com/imroc/req/v3"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/apperr"
)

// Forecaster talks to the side service that extrapolates a completion date
// from the progress history. It is always advisory: callers turn its
// failures into an "unavailable" message, never into a request failure.
type Forecaster struct {
	url string
	req *imrocreq.Client
}

func NewForecaster(url string, timeout time.Duration) *Forecaster {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Forecaster{
		url: url,
		req: imrocreq.C().SetTimeout(timeout),
	}
}

type (
	forecastReq struct {
		ProgressHistory []model.ProgressPoint `json:"progressHistory"`
	}
	forecastResp struct {
		PredictedCompletionDate *string `json:"predictedCompletionDate"`
		Message                 string  `json:"message"`
	}
)

// Extrapolate returns the predicted completion date for the given history.
func (f *Forecaster) Extrapolate(ctx context.Context, history []model.ProgressPoint) (*string, error) {
	var result forecastResp
	resp, err := f.req.R().
		SetContext(ctx).
		SetBody(&forecastReq{ProgressHistory: history}).
		SetSuccessResult(&result).
		Post(f.url)
	if err != nil {
		klog.Errorf("forecaster call failed: %v", err)
		return nil, apperr.Wrap(apperr.KindUpstream, err, "forecaster unavailable")
	}
	if resp.IsErrorState() {
		return nil, apperr.Upstreamf("forecaster returned status %d", resp.StatusCode)
	}
	if result.PredictedCompletionDate == nil {
		return nil, apperr.Upstreamf("forecaster returned no prediction")
	}
	return result.PredictedCompletionDate, nil
}
