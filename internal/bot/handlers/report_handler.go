package handlers

import (
	"context"
	"strings"
	"time"
)

// uptimePlaceholder is replaced with the process uptime in the report.
const uptimePlaceholder = "{}"

// NewReportHandler returns the /report handler.
func NewReportHandler(deps HandlerDeps) CommandHandler {
	return reportHandler{deps}.Handle
}

type reportHandler struct {
	deps HandlerDeps
}

func (h reportHandler) Handle(ctx context.Context) string {
	uptime := h.deps.Now().Sub(h.deps.StartedAt).Round(time.Second)
	h.deps.Logger.InfoContext(ctx, "Serving /report", "uptime", uptime)
	return strings.ReplaceAll(h.deps.Messages.Report, uptimePlaceholder, uptime.String())
}
