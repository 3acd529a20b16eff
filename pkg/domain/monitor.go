package domain

// Monitor は進捗の通知先。通知内容は処理結果に影響しない
type Monitor interface {
	// AddTotal は全体の処理件数を加算する
	AddTotal(count int)
	// Increment は処理済み件数を1つ進める
	Increment()
	Message(message string)
}

type NopMonitor struct{}

func (NopMonitor) AddTotal(count int)     {}
func (NopMonitor) Increment()             {}
func (NopMonitor) Message(message string) {}
