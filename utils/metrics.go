package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики операций (deposit, withdraw, register, ...).
	// Rejected - ожидаемые отказы (нет средств, занятое имя), Failed - сбои.
	Operations         map[string]int64
	FailedOperations   map[string]int64
	RejectedOperations map[string]int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		Operations:         make(map[string]int64),
		FailedOperations:   make(map[string]int64),
		RejectedOperations: make(map[string]int64),
		ErrorTypes:         make(map[string]int64),
	}
}

// GetMetrics возвращает общий экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики HTTP-запроса; failed - ответ со статусом 5xx
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordOperation записывает результат доменной операции
func (m *Metrics) RecordOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Operations[operation]++
	if err != nil {
		m.FailedOperations[operation]++
		m.recordErrorLocked(err)
	}
}

// RecordRejection записывает операцию, отклоненную по правилам предметной области.
// Такой отказ не считается ошибкой сервиса.
func (m *Metrics) RecordRejection(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Operations[operation]++
	m.RejectedOperations[operation]++
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordErrorLocked(err)
}

func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}

	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_requests":      m.TotalRequests,
		"failed_requests":     m.FailedRequests,
		"average_latency":     m.AverageLatency.String(),
		"operations":          copyCounters(m.Operations),
		"failed_operations":   copyCounters(m.FailedOperations),
		"rejected_operations": copyCounters(m.RejectedOperations),
		"error_count":         m.ErrorCount,
		"last_error_time":     m.LastErrorTime,
		"error_types":         copyCounters(m.ErrorTypes),
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.LastRequestTime = time.Time{}
	m.Operations = make(map[string]int64)
	m.FailedOperations = make(map[string]int64)
	m.RejectedOperations = make(map[string]int64)
	m.ErrorCount = 0
	m.LastErrorTime = time.Time{}
	m.ErrorTypes = make(map[string]int64)
}

func copyCounters(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
