// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストア、サービス層、ミドルウェアから利用する。
type MetricsCollector interface {
	ObserveLockWait(mode string, d time.Duration, timedOut bool)
	ObserveTransaction(mode string, d time.Duration, err error)
	RecordLogin(success bool)
	RecordBoardClosed()
	RecordTaskCreated()
	RecordClosedBoardRegression()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

var _ MetricsCollector = (*Collector)(nil)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	transactions   *prometheus.CounterVec
	txLatency      *prometheus.HistogramVec
	lockWait       prometheus.Histogram
	lockTimeouts   prometheus.Counter
	logins         *prometheus.CounterVec
	boardsClosed   prometheus.Counter
	tasksCreated   prometheus.Counter
	regressions    prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_store_transactions_total",
			Help: "ストアトランザクションの合計数",
		}, []string{"mode", "result"}),
		txLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_store_transaction_seconds",
			Help:    "ストアトランザクションの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_store_lock_wait_seconds",
			Help:    "文書ロックの待ち時間（秒）",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		lockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_store_lock_timeouts_total",
			Help: "ロック待ちが上限を超えた回数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_logins_total",
			Help: "ログイン試行の合計数",
		}, []string{"result"}),
		boardsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_boards_closed_total",
			Help: "クローズされたボードの合計数",
		}),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_tasks_created_total",
			Help: "作成されたタスクの合計数",
		}),
		regressions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_closed_board_regressions_total",
			Help: "クローズ済みボードのタスクが未完了に戻された回数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_http_request_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.transactions,
		c.txLatency,
		c.lockWait,
		c.lockTimeouts,
		c.logins,
		c.boardsClosed,
		c.tasksCreated,
		c.regressions,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// ObserveLockWait はロック待ち時間を記録する。
func (c *Collector) ObserveLockWait(mode string, d time.Duration, timedOut bool) {
	c.lockWait.Observe(d.Seconds())
	if timedOut {
		c.lockTimeouts.Inc()
	}
}

// ObserveTransaction はトランザクションの結果と所要時間を記録する。
func (c *Collector) ObserveTransaction(mode string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.transactions.WithLabelValues(mode, result).Inc()
	c.txLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordBoardClosed はボードのクローズを記録する。
func (c *Collector) RecordBoardClosed() {
	c.boardsClosed.Inc()
}

// RecordTaskCreated はタスクの作成を記録する。
func (c *Collector) RecordTaskCreated() {
	c.tasksCreated.Inc()
}

// RecordClosedBoardRegression はクローズ済みボードのタスク状態の後退を記録する。
func (c *Collector) RecordClosedBoardRegression() {
	c.regressions.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
