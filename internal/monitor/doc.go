// Package monitor watches the evaluation outcomes for operational
// anomalies: it tracks per-stage abstention rates and event throughput over
// a sliding window, fires threshold rules with cooldown, and delivers
// webhook notifications. Sustained abstention on a stage usually means its
// calibration has drifted from the data it is scoring.
package monitor
