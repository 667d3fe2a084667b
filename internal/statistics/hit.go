package statistics

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

// HitRecordList counts how often each rule rewrote a URL and periodically
// dumps the counts, busiest first, to a file.
type HitRecordList struct {
	recordAddChan chan *HitRecord
	records       map[string]*HitRecord
	mu            sync.RWMutex
	done          chan struct{}
	closeOnce     sync.Once

	dumpFile   string
	dumpWriter *bufio.Writer
}

type HitRecord struct {
	Match     string `json:"match"`
	Count     int    `json:"count"`
	LastURL   string `json:"last_url"`
	Rewritten string `json:"rewritten"`
}

func NewHitRecordList(dumpFile string) *HitRecordList {
	return &HitRecordList{
		recordAddChan: make(chan *HitRecord, 100),
		records:       make(map[string]*HitRecord, 64),
		done:          make(chan struct{}),
		dumpFile:      dumpFile,
		dumpWriter:    bufio.NewWriter(nil),
	}
}

func (l *HitRecordList) Run(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case record := <-l.recordAddChan:
				l.Add(record)
			case <-ticker.C:
				if l.dumpFile != "" {
					l.Dump()
				}
			case <-l.done:
				return
			}
		}
	}()
}

func (l *HitRecordList) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// Offer queues a record for the worker; it drops the record when the queue
// is full.
func (l *HitRecordList) Offer(record *HitRecord) {
	select {
	case l.recordAddChan <- record:
	default:
	}
}

func (l *HitRecordList) Add(record *HitRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, exists := l.records[record.Match]; exists {
		r.Count++
		r.LastURL = record.LastURL
		r.Rewritten = record.Rewritten
	} else {
		l.records[record.Match] = &HitRecord{
			Match:     record.Match,
			Count:     1,
			LastURL:   record.LastURL,
			Rewritten: record.Rewritten,
		}
	}
}

// Snapshot returns a copy of the records, busiest first.
func (l *HitRecordList) Snapshot() []HitRecord {
	l.mu.RLock()
	records := make([]HitRecord, 0, len(l.records))
	for _, record := range l.records {
		records = append(records, *record)
	}
	l.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Count == records[j].Count {
			return records[i].Match < records[j].Match
		}
		return records[i].Count > records[j].Count
	})
	return records
}

func (l *HitRecordList) Dump() {
	f, err := os.Create(l.dumpFile)
	if err != nil {
		slog.Error("os.Create", slog.Any("error", err))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("os.File.Close", slog.Any("error", err))
		}
	}()

	l.dumpWriter.Reset(f)
	defer func() {
		if err := l.dumpWriter.Flush(); err != nil {
			slog.Error("bufio.Writer.Flush", slog.Any("error", err))
		}
	}()

	for _, record := range l.Snapshot() {
		_, err := fmt.Fprintf(l.dumpWriter, "%s %d %s -> %s\n",
			record.Match, record.Count, record.LastURL, record.Rewritten)
		if err != nil {
			slog.Error("Dump fmt.Fprintf", slog.Any("error", err))
		}
	}
}
