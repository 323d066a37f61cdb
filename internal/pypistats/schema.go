package pypistats

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/snakestats/internal/model"
)

// Pointer fields let a missing or null member fail validation instead of
// decoding to a zero value.
type overallResponse struct {
	Data    *[]overallPoint `json:"data"`
	Package *string         `json:"package"`
	Type    *string         `json:"type"`
}

type overallPoint struct {
	Category  *string `json:"category"`
	Date      *string `json:"date"`
	Downloads *int64  `json:"downloads"`
}

func decodeSeries(pkg string, r io.Reader) (model.PackageSeries, error) {
	var payload overallResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return model.PackageSeries{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if payload.Data == nil {
		return model.PackageSeries{}, fmt.Errorf("%w: missing data", ErrSchema)
	}
	if payload.Package == nil {
		return model.PackageSeries{}, fmt.Errorf("%w: missing package", ErrSchema)
	}
	if payload.Type == nil {
		return model.PackageSeries{}, fmt.Errorf("%w: missing type", ErrSchema)
	}

	points := make([]model.SeriesPoint, 0, len(*payload.Data))
	for i, p := range *payload.Data {
		if p.Category == nil || p.Date == nil || p.Downloads == nil {
			return model.PackageSeries{}, fmt.Errorf("%w: incomplete point at index %d", ErrSchema, i)
		}
		if *p.Downloads < 0 {
			return model.PackageSeries{}, fmt.Errorf("%w: negative downloads at index %d", ErrSchema, i)
		}
		date, err := time.ParseInLocation(model.DateLayout, *p.Date, time.UTC)
		if err != nil {
			return model.PackageSeries{}, fmt.Errorf("%w: invalid date %q at index %d", ErrSchema, *p.Date, i)
		}
		points = append(points, model.SeriesPoint{
			Category:  *p.Category,
			Date:      date,
			Downloads: *p.Downloads,
		})
	}

	return model.PackageSeries{
		Package:  pkg,
		Reported: *payload.Package,
		Type:     *payload.Type,
		Points:   points,
	}, nil
}
