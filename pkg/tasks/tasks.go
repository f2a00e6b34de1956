// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// 索引任务的记录类型。
const (
	KindMessage = "message"
	KindThread  = "thread"
)

// IndexTask 要求索引管道重新加载一条记录并写入 namespace 索引。
type IndexTask struct {
	Kind              string `json:"kind"`
	NamespacePublicID string `json:"namespace_id"`
	RecordID          int64  `json:"record_id"`
}

// SyncbackAction 是派发给服务商回写进程的一条本地修改。
type SyncbackAction struct {
	ActionLogID int64                  `json:"action_log_id"`
	NamespaceID string                 `json:"namespace_id"`
	RecordID    string                 `json:"record_id"`
	RecordType  string                 `json:"record_type"`
	Action      string                 `json:"action"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}
