package desktop

import (
	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/logging"
	"yashubustudio/sentiment/internal/sentiment"
)

const fyneAppID = "studio.yashubu.sentiment"

// Run opens the desktop window and blocks until it is closed.
func Run(scorer *sentiment.Scorer, logger *zap.Logger) error {
	a := fyneapp.NewWithID(fyneAppID)
	u := buildUI(a, scorer, logging.OrNop(logger))
	u.w.ShowAndRun()
	return nil
}
