package kernel

import "github.com/pspoerri/gprat/internal/tilebuf"

// CovarianceAction names a covariance-tile generator kernel as registered
// in the action table below, mirroring the distributed-action naming the
// original implementation used for its HPX action registration.
type CovarianceAction string

const (
	ActionGenTilePriorCovariance     CovarianceAction = "gen_tile_prior_covariance_distributed_action"
	ActionGenTileFullPriorCovariance CovarianceAction = "gen_tile_full_prior_covariance_distributed_action"
)

// PriorCovarianceFunc is the shape shared by both registered prior-covariance
// action names.
type PriorCovarianceFunc func(rowPoints, colPoints [][]float64, rowStart, colStart int, h Hyperparameters) (tilebuf.Buffer, error)

// PriorCovarianceActions registers both action names the original
// implementation exposes. Both are present; no code in this module looks
// either name up through this map — see PriorCovarianceAliasNote for why
// this module does not silently collapse them into a single name.
var PriorCovarianceActions = map[CovarianceAction]PriorCovarianceFunc{
	ActionGenTilePriorCovariance:     GenTilePriorCovariance,
	ActionGenTileFullPriorCovariance: GenTileFullPriorCovariance,
}
