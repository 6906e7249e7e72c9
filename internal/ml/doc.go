// Package ml implements the ensemble prediction engine: it loads model
// and scaler artifacts from a directory, combines per-model grade
// estimates into a weighted prediction with an agreement-based confidence
// score, and degrades gracefully at two tiers when models are missing or
// the whole scoring path is unreachable.
//
// The engine never turns a partial failure into a caller-visible error.
// Artifacts that fail to load are skipped, models that fail to predict
// are excluded from the weighted sum, and an empty surviving set falls
// back to the raw feature mean. The separate baseline formula covers the
// case where this engine cannot be reached at all.
package ml
