package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"plato-wp36.eu/testbench/telemetry"
)

// inlineResultThreshold is the 1MB ceiling below which a result summary is
// stored inline as JSON text; above it, only the filename reference is
// kept and the caller is expected to have written the full payload to the
// output directory already (see InsertResult).
const inlineResultThreshold = 1 << 20

// InsertRunTime resolves the record's dimension ids (creating them if
// necessary) and appends a row to eas_run_times.
func (s *Store) InsertRunTime(ctx context.Context, record telemetry.RunTimeRecord) error {
	jobID, codeID, serverID, targetID, taskID, err := s.resolveDimensions(
		ctx, record.JobName, record.TDACode, record.TargetName, record.TaskName)
	if err != nil {
		return err
	}

	lcLength, _ := record.Parameters["lc_length"].(float64)

	row := RunTime{
		JobID:                 jobID,
		CodeID:                codeID,
		ServerID:              serverID,
		TargetID:              targetID,
		TaskID:                taskID,
		LCLength:              lcLength,
		Timestamp:             secondsToTime(record.Timestamp),
		RunTimeWallClock:      record.Wall,
		RunTimeCPU:            record.CPUSelf,
		RunTimeCPUIncChildren: record.CPUChildren,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err)
	}
	return nil
}

// InsertResult resolves dimension ids and appends a row to eas_results. If
// extendedPayloadPath is non-empty, the file it names is moved from the
// scratch directory into outputDir under the result's deterministic
// filename (see ResultFilename) before the row is written; the summary
// JSON is stored inline only when it serializes under
// inlineResultThreshold bytes, otherwise only the filename is recorded.
func (s *Store) InsertResult(ctx context.Context, record telemetry.ResultRecord, extendedPayloadPath, outputDir string) error {
	jobID, codeID, serverID, targetID, taskID, err := s.resolveDimensions(
		ctx, record.JobName, record.TDACode, record.TargetName, record.TaskName)
	if err != nil {
		return err
	}

	lcLength, _ := record.Parameters["lc_length"].(float64)

	summaryJSON, err := json.Marshal(record.ResultSummary)
	if err != nil {
		return fmt.Errorf("store: marshaling result summary: %w", err)
	}

	row := Result{
		JobID:     jobID,
		CodeID:    codeID,
		ServerID:  serverID,
		TargetID:  targetID,
		TaskID:    taskID,
		LCLength:  lcLength,
		Timestamp: secondsToTime(record.Timestamp),
	}

	if len(summaryJSON) < inlineResultThreshold {
		row.Results = string(summaryJSON)
	} else {
		row.ResultFilename = ResultFilename(record.JobName, record.TaskName, record.TDACode, record.TargetName)
	}

	if extendedPayloadPath != "" {
		filename := ResultFilename(record.JobName, record.TaskName, record.TDACode, record.TargetName)
		destination := filepath.Join(outputDir, filename)
		if err := relocate(extendedPayloadPath, destination); err != nil {
			return fmt.Errorf("store: relocating extended result payload: %w", err)
		}
		row.ResultFilename = filename
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err)
	}
	return nil
}

// ResultFilename produces the deterministic extended-result filename used
// both to relocate scratch files and to reference them from a fact row.
func ResultFilename(jobName, taskName, tdaCode, targetName string) string {
	return fmt.Sprintf("%s_%s_%s_%s.json.gz", jobName, taskName, tdaCode, filepath.Base(targetName))
}

// relocate moves src to dst, creating dst's parent directory if needed.
// os.Rename is used rather than copy+delete since scratch and output
// directories are expected to share a filesystem; this mirrors the
// original's shutil-free move semantics.
func relocate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (s *Store) resolveDimensions(ctx context.Context, jobName, tdaCode, targetName, taskName string) (jobID, codeID, serverID, targetID, taskID uint, err error) {
	host, err := hostname()
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("store: resolving server hostname: %w", err)
	}

	if jobID, err = s.GetOrCreateID(ctx, DimensionJobs, jobName); err != nil {
		return
	}
	if codeID, err = s.GetOrCreateID(ctx, DimensionTDACodes, tdaCode); err != nil {
		return
	}
	if serverID, err = s.GetOrCreateID(ctx, DimensionServers, host); err != nil {
		return
	}
	if targetID, err = s.GetOrCreateID(ctx, DimensionTargets, targetName); err != nil {
		return
	}
	if taskID, err = s.GetOrCreateID(ctx, DimensionTasks, taskName); err != nil {
		return
	}
	return
}

func secondsToTime(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second)))
}
