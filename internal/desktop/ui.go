package desktop

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/sentiment"
	"yashubustudio/sentiment/internal/textio"
)

const (
	logDebounceInterval = 150 * time.Millisecond
	maxLogLines         = 200
	previewRunes        = 80
)

type tableColumn struct {
	Title  string
	Width  float32
	Render func(textio.Record, sentiment.Result) string
}

type uiState struct {
	scorer *sentiment.Scorer
	logger *zap.Logger

	w            fyne.Window
	input        *widget.Entry
	log          *widget.Entry
	status       *widget.Label
	result       *widget.Label
	progress     *widget.ProgressBar
	modelSummary *widget.Label
	resTbl       *widget.Table
	columns      []tableColumn
	statusBind   binding.String
	resultBind   binding.String
	logBind      binding.String
	progressBind binding.Float
	logLines     []string
	logMu        sync.Mutex
	logUpdateCh  chan struct{}

	rowsMu  sync.Mutex
	records []textio.Record
	results []sentiment.Result

	analyzeBtn *widget.Button
	batchBtn   *widget.Button
	exportBtn  *widget.Button
	loadBtn    *widget.Button
}

func buildUI(a fyne.App, scorer *sentiment.Scorer, logger *zap.Logger) *uiState {
	u := &uiState{scorer: scorer, logger: logger}
	u.w = a.NewWindow("Sentiment Analyzer")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("準備完了")
	u.resultBind = binding.NewString()
	u.progressBind = binding.NewFloat()
	u.logBind = binding.NewString()
	u.startLogUpdater()

	u.input = widget.NewMultiLineEntry()
	u.input.Wrapping = fyne.TextWrapWord
	u.input.SetPlaceHolder("分析したい文章を入力（一括判定は1行=1件）")

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("処理ログ")
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.result = widget.NewLabelWithData(u.resultBind)
	u.result.Wrapping = fyne.TextWrapWord
	u.result.TextStyle = fyne.TextStyle{Bold: true}
	u.progress = widget.NewProgressBarWithData(u.progressBind)
	u.progress.Hide()
	u.modelSummary = widget.NewLabel(modelSummary(scorer))

	u.analyzeBtn = widget.NewButtonWithIcon("判定", theme.ConfirmIcon(), func() { u.onAnalyze() })
	u.batchBtn = widget.NewButtonWithIcon("一括判定", theme.ListIcon(), func() { u.onBatch() })
	u.exportBtn = widget.NewButtonWithIcon("CSVエクスポート", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.loadBtn = widget.NewButtonWithIcon("ファイル読込", theme.FolderOpenIcon(), func() { u.onLoadFile() })

	u.columns = resultColumns(scorer.Labels())
	u.resTbl = widget.NewTable(
		func() (int, int) {
			u.rowsMu.Lock()
			defer u.rowsMu.Unlock()
			return len(u.results) + 1, len(u.columns)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			if id.Row == 0 {
				lbl.SetText(u.columns[id.Col].Title)
				lbl.Alignment = fyne.TextAlignCenter
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			lbl.Alignment = fyne.TextAlignLeading
			rec, res, ok := u.rowAt(id.Row - 1)
			if !ok {
				lbl.SetText("")
				return
			}
			lbl.SetText(u.columns[id.Col].Render(rec, res))
		},
	)
	u.resTbl.OnSelected = func(id widget.TableCellID) {
		if id.Row <= 0 {
			return
		}
		rec, res, ok := u.rowAt(id.Row - 1)
		if !ok {
			return
		}
		dialog.ShowInformation("詳細", fmt.Sprintf("本文:\n%s\n\n%s", rec.Text, sentiment.Format(res)), u.w)
	}
	u.applyColumnWidths()

	left := container.NewBorder(
		container.NewVBox(
			container.NewHBox(u.analyzeBtn, u.batchBtn, u.loadBtn, u.exportBtn),
			u.modelSummary,
		),
		container.NewVBox(
			widget.NewCard("結果", "", u.result),
			u.progress,
			u.status,
		),
		nil, nil,
		u.input,
	)
	right := container.NewVSplit(u.resTbl, u.log)
	right.Offset = 0.7
	split := container.NewHSplit(left, right)
	split.Offset = 0.35

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	u.appendLog(fmt.Sprintf("モデル読込完了: %s", scorer.ModelID()))
	return u
}

func resultColumns(labels []string) []tableColumn {
	cols := []tableColumn{
		{Title: "#", Width: 60, Render: func(r textio.Record, _ sentiment.Result) string { return r.Index }},
		{Title: "テキスト", Width: 420, Render: func(r textio.Record, _ sentiment.Result) string {
			return textio.Preview(r.Text, previewRunes)
		}},
		{Title: "判定", Width: 100, Render: func(_ textio.Record, res sentiment.Result) string { return res.Label }},
	}
	for _, label := range labels {
		cols = append(cols, tableColumn{
			Title: label,
			Width: 90,
			Render: func(_ textio.Record, res sentiment.Result) string {
				return percentCell(res, label)
			},
		})
	}
	return cols
}

func percentCell(res sentiment.Result, label string) string {
	v, ok := res.Scores.Get(label)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f%%", v)
}

func modelSummary(scorer *sentiment.Scorer) string {
	return fmt.Sprintf("モデル:%s / ラベル:%s", scorer.ModelID(), strings.Join(scorer.Labels(), ", "))
}

func (u *uiState) rowAt(i int) (textio.Record, sentiment.Result, bool) {
	u.rowsMu.Lock()
	defer u.rowsMu.Unlock()
	if i < 0 || i >= len(u.results) || i >= len(u.records) {
		return textio.Record{}, sentiment.Result{}, false
	}
	return u.records[i], u.results[i], true
}

func (u *uiState) setRows(records []textio.Record, results []sentiment.Result) {
	u.rowsMu.Lock()
	u.records = records
	u.results = results
	u.rowsMu.Unlock()
	fyne.Do(func() {
		u.resTbl.Refresh()
	})
}

func (u *uiState) snapshotRows() ([]textio.Record, []sentiment.Result) {
	u.rowsMu.Lock()
	defer u.rowsMu.Unlock()
	return append([]textio.Record(nil), u.records...), append([]sentiment.Result(nil), u.results...)
}

func (u *uiState) applyColumnWidths() {
	for i, col := range u.columns {
		u.resTbl.SetColumnWidth(i, col.Width)
	}
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.analyzeBtn, u.batchBtn, u.exportBtn, u.loadBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) appendLog(msg string) {
	now := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", now, msg)
	u.logger.Debug("ui", zap.String("message", msg))

	u.logMu.Lock()
	u.logLines = append(u.logLines, line)
	if len(u.logLines) > maxLogLines {
		u.logLines = u.logLines[len(u.logLines)-maxLogLines:]
	}
	u.logMu.Unlock()

	if u.logUpdateCh == nil {
		u.flushLog()
		return
	}
	select {
	case u.logUpdateCh <- struct{}{}:
	default:
	}
}

func (u *uiState) startLogUpdater() {
	if u.logUpdateCh != nil {
		return
	}
	u.logUpdateCh = make(chan struct{}, 1)
	go u.logUpdateLoop()
}

func (u *uiState) logUpdateLoop() {
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-u.logUpdateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			u.flushLog()
		}
	}
}

func (u *uiState) flushLog() {
	u.logMu.Lock()
	text := strings.Join(u.logLines, "\n")
	u.logMu.Unlock()
	_ = u.logBind.Set(text)
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) configureProgress(min, max float64) {
	fyne.Do(func() {
		u.progress.Min = min
		u.progress.Max = max
	})
}

func (u *uiState) setProgressValue(value float64) {
	_ = u.progressBind.Set(value)
}

func (u *uiState) showProgress(show bool) {
	fyne.Do(func() {
		if show {
			u.progress.Show()
		} else {
			u.progress.Hide()
		}
	})
}

func (u *uiState) showError(err error) {
	u.setStatus("エラー")
	u.appendLog(fmt.Sprintf("エラー: %v", err))
	fyne.Do(func() {
		dialog.ShowError(err, u.w)
	})
}

// onAnalyze scores the whole entry as a single text, like the web form.
func (u *uiState) onAnalyze() {
	text := u.input.Text
	u.setBusy(true)
	u.setStatus("判定中...")

	go func() {
		defer u.setBusy(false)
		start := time.Now()
		display, err := u.scorer.Analyze(context.Background(), text)
		if err != nil {
			u.showError(err)
			return
		}
		_ = u.resultBind.Set(display)
		u.setStatus(fmt.Sprintf("完了 (%.2fs)", time.Since(start).Seconds()))
		u.appendLog(fmt.Sprintf("判定: %s → %s", textio.Preview(text, 40), sentiment.ParseLabel(display)))
	}()
}

// onBatch scores every non-empty line of the entry.
func (u *uiState) onBatch() {
	lines := textio.SplitNonEmptyLines(u.input.Text)
	if len(lines) == 0 {
		dialog.ShowInformation("情報", "入力テキストが空です", u.w)
		return
	}
	records := make([]textio.Record, len(lines))
	for i, line := range lines {
		records[i] = textio.Record{Text: line}
	}
	u.runBatch(records)
}

func (u *uiState) runBatch(records []textio.Record) {
	total := len(records)
	u.configureProgress(0, float64(total))
	u.setProgressValue(0)
	u.showProgress(true)
	u.setStatus("処理中...")
	u.setBusy(true)
	u.appendLog(fmt.Sprintf("一括判定開始 (%d件)", total))
	start := time.Now()

	go func() {
		defer u.setBusy(false)
		defer u.showProgress(false)
		results, err := u.scorer.ScoreBatch(context.Background(), textio.Texts(records), func(done, total int) {
			u.setProgressValue(float64(done))
			u.setStatus(fmt.Sprintf("処理中 %d/%d", done, total))
		})
		if err != nil {
			u.showError(err)
			return
		}
		numbered := numberRecords(records)
		u.setRows(numbered, results)
		elapsed := time.Since(start).Seconds()
		labels := u.scorer.Labels()
		counts := countLabels(results, labels)
		u.setStatus(fmt.Sprintf("完了 %d件 (%.1fs)", len(results), elapsed))
		u.appendLog(fmt.Sprintf("一括判定完了 %d件 (%.1fs) %s", len(results), elapsed, formatCounts(counts, labels)))
	}()
}

func numberRecords(records []textio.Record) []textio.Record {
	out := make([]textio.Record, len(records))
	for i, rec := range records {
		if rec.Index == "" {
			rec.Index = fmt.Sprintf("%d", i+1)
		}
		out[i] = rec
	}
	return out
}

func countLabels(results []sentiment.Result, labels []string) map[string]int {
	counts := make(map[string]int, len(labels))
	for _, res := range results {
		counts[res.Label]++
	}
	return counts
}

func formatCounts(counts map[string]int, labels []string) string {
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s:%d", label, counts[label]))
	}
	return strings.Join(parts, " ")
}

func (u *uiState) onExport() {
	records, results := u.snapshotRows()
	if len(results) == 0 {
		dialog.ShowInformation("情報", "出力データがありません", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := textio.WriteResults(uc, records, results, u.scorer.Labels()); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.appendLog(fmt.Sprintf("CSVエクスポート完了 (%d件)", len(results)))
	}, u.w)
	fd.SetFileName("result.csv")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

func (u *uiState) onLoadFile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()

		meta, err := textio.ReadFileMetadata(path)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if len(meta.Columns) <= 1 {
			u.loadRecords(path, textio.ParseOptions{Normalize: true})
			return
		}
		u.chooseColumn(path, meta)
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt", ".csv", ".tsv"}))
	fd.Show()
}

func (u *uiState) chooseColumn(path string, meta textio.FileMetadata) {
	options := make([]string, len(meta.Columns))
	for i := range meta.Columns {
		options[i] = textio.ColumnLabel(meta.Columns, i)
	}
	selected := meta.SuggestedText
	if selected == "" {
		selected = options[0]
	}
	selectWidget := widget.NewSelect(options, func(value string) { selected = value })
	selectWidget.SetSelected(selected)
	info := widget.NewLabel("判定する列を選択してください")
	content := container.NewVBox(info, selectWidget)
	dialog.NewCustomConfirm("列の選択", "読み込む", "キャンセル", content, func(ok bool) {
		if !ok {
			return
		}
		if indexOf(options, selected) < 0 {
			dialog.ShowError(errors.New("有効な列が見つかりません"), u.w)
			return
		}
		u.loadRecords(path, textio.ParseOptions{TextColumn: selected, Normalize: true})
	}, u.w).Show()
}

func (u *uiState) loadRecords(path string, opts textio.ParseOptions) {
	records, err := textio.ReadRecords(path, opts)
	if err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	if len(records) == 0 {
		dialog.ShowInformation("情報", "テキストが見つかりませんでした", u.w)
		return
	}
	u.input.SetText(strings.Join(textio.Texts(records), "\n"))
	u.appendLog(fmt.Sprintf("ファイル読込: %s (%d件)", filepath.Base(path), len(records)))
	u.runBatch(records)
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}
