package main

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`

// progressMonitor は処理の進捗をプログレスバーに表示する
type progressMonitor struct {
	bar     *pb.ProgressBar
	once    sync.Once
	started bool
}

func newProgressMonitor(w io.Writer) *progressMonitor {
	bar := pb.New(0)
	bar.SetWriter(w)
	bar.SetTemplateString(progressTemplate)
	return &progressMonitor{bar: bar}
}

// start は最初の件数が届いた時点でバーを出す
func (m *progressMonitor) start() {
	m.once.Do(func() {
		m.bar.Start()
		m.started = true
	})
}

func (m *progressMonitor) AddTotal(count int) {
	m.bar.AddTotal(int64(count))
	m.start()
}

func (m *progressMonitor) Increment() {
	m.bar.Increment()
}

func (m *progressMonitor) Message(message string) {
	m.bar.Set("prefix", message)
}

func (m *progressMonitor) Finish() {
	if m.started {
		m.bar.Finish()
	}
}
