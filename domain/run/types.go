package run

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
)

// FeatureSchema records how a run's feature matrix was built so that new
// actors can be projected onto the same columns and scale.
type FeatureSchema struct {
	IncludeDrivers       bool      `json:"include_drivers"`
	IncludeContradiction bool      `json:"include_contradiction"`
	IncludeQuantum       bool      `json:"include_quantum"`
	Normalize            bool      `json:"normalize"`
	Columns              []string  `json:"columns"`
	Min                  []float64 `json:"min"`
	Max                  []float64 `json:"max"`
	ConstantColumns      []int     `json:"constant_columns,omitempty"`
}

// Run is the metadata of one accepted clustering run.
type Run struct {
	ID               core.RunID           `json:"run_id"`
	Algorithm        clustering.Algorithm `json:"algorithm"`
	Params           clustering.Params    `json:"params"`
	NActors          int                  `json:"n_actors"`
	NClusters        int                  `json:"n_clusters"`
	Silhouette       float64              `json:"silhouette_score"`
	CalinskiHarabasz float64              `json:"calinski_harabasz_score"`
	DaviesBouldin    float64              `json:"davies_bouldin_score"`
	Quality          quality.Label        `json:"quality"`
	Features         FeatureSchema        `json:"features"`
	Fingerprint      RunFingerprint       `json:"fingerprint"`
	CreatedAt        time.Time            `json:"created_at"`
}

// MarshalJSON encodes an undefined Davies-Bouldin score as null.
func (r Run) MarshalJSON() ([]byte, error) {
	type alias Run
	return json.Marshal(struct {
		alias
		DaviesBouldin *float64 `json:"davies_bouldin_score"`
	}{alias(r), quality.FiniteOrNil(r.DaviesBouldin)})
}

// UnmarshalJSON restores a null Davies-Bouldin score to +Inf.
func (r *Run) UnmarshalJSON(data []byte) error {
	type alias Run
	aux := struct {
		*alias
		DaviesBouldin *float64 `json:"davies_bouldin_score"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.DaviesBouldin = quality.UndefinedDaviesBouldin
	if aux.DaviesBouldin != nil {
		r.DaviesBouldin = *aux.DaviesBouldin
	}
	return nil
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	Algorithm     clustering.Algorithm `json:"algorithm"`
	Seed          int64                `json:"seed"`
	ParamsHash    core.Hash            `json:"params_hash"`
	PartitionHash core.Hash            `json:"partition_hash"`
	CodeVersion   string               `json:"code_version"`
	Fingerprint   core.Hash            `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters and the
// resulting partition.
func NewRunFingerprint(alg clustering.Algorithm, params clustering.Params,
	partitionHash core.Hash, codeVersion string) RunFingerprint {

	paramsHash := hashParams(params)
	fingerprint := computeRunFingerprint(alg, params.Seed, paramsHash, partitionHash, codeVersion)

	return RunFingerprint{
		Algorithm:     alg,
		Seed:          params.Seed,
		ParamsHash:    paramsHash,
		PartitionHash: partitionHash,
		CodeVersion:   codeVersion,
		Fingerprint:   fingerprint,
	}
}

func hashParams(p clustering.Params) core.Hash {
	data := fmt.Sprintf("k:%d|seed:%d|n_init:%d|max_iter:%d|tol:%g|eps:%g|min_pts:%d|linkage:%s|reg:%g",
		p.K, p.Seed, p.NInit, p.MaxIter, p.Tol, p.Eps, p.MinPts, p.Linkage, p.RegCovar)
	return core.NewHash([]byte(data))
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(alg clustering.Algorithm, seed int64, paramsHash,
	partitionHash core.Hash, codeVersion string) core.Hash {

	data := fmt.Sprintf("algorithm:%s|seed:%d|params:%s|partition:%s|code:%s",
		alg, seed, paramsHash, partitionHash, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
