package taskmgr

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

const (
	msgCompleted        = "download completed"
	msgExtractionFailed = "metadata extraction failed"
)

// notify extracts metadata for a finished artifact and publishes one
// task-completed event. Failures are never announced here.
func (m *Manager) notify(taskID, fileName string) {
	defer m.wg.Done()

	payload := domain.CompletionPayload{
		Success:  true,
		Message:  msgCompleted,
		TaskID:   taskID,
		FileName: fileName,
	}
	meta, err := m.extractor.Extract(fileName)
	if err != nil {
		m.log.Warn("metadata extraction failed", zap.String("task", taskID), zap.String("file", fileName), zap.Error(err))
		payload.Success = false
		payload.Message = msgExtractionFailed
		payload.Error = err.Error()
	} else {
		payload.Data = &meta
	}

	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("encode completion payload", zap.String("task", taskID), zap.Error(err))
		return
	}
	n := m.pub.Publish(domain.DefaultChannel, domain.Event{Type: domain.EventTaskCompleted, Data: string(data)})
	m.log.Info("completion published", zap.String("task", taskID), zap.Bool("success", payload.Success), zap.Int("subscribers", n))
}
