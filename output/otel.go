package output

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"varanus/config"
	"varanus/logger"
	"varanus/validate"
)

// IssueExporter ships validation issues to an OTLP/HTTP logs endpoint so a
// collector can alert on integrity failures across many scans.
type IssueExporter struct {
	provider     *sdklog.LoggerProvider
	logger       otelLog.Logger
	timeout      time.Duration
	endpoint     string
	includePaths bool
}

// NewIssueExporter returns nil without error when no endpoint is configured.
func NewIssueExporter(cfg *config.Config) (*IssueExporter, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}
	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.OtelServiceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	return &IssueExporter{
		provider:     provider,
		logger:       provider.Logger("varanus"),
		timeout:      cfg.OtelTimeout,
		endpoint:     endpoint,
		includePaths: cfg.OtelExportPaths,
	}, nil
}

func resolveEndpoint(cfg *config.Config) string {
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

// Endpoint returns the resolved export target.
func (e *IssueExporter) Endpoint() string {
	if e == nil {
		return ""
	}
	return e.endpoint
}

// EmitIssues sends one log record per issue. File paths are withheld unless
// export of raw paths was opted into.
func (e *IssueExporter) EmitIssues(issues []validate.Issue) {
	if e == nil || e.logger == nil {
		return
	}
	now := time.Now()
	for _, issue := range issues {
		var record otelLog.Record
		record.SetTimestamp(now)
		record.SetObservedTimestamp(now)
		record.SetEventName("varanus.issue")
		record.SetSeverity(otelSeverity(issue.Severity))
		record.SetSeverityText(string(issue.Severity))
		record.SetBody(otelLog.StringValue(issue.Detail))
		record.AddAttributes(otelLog.String("issue.code", string(issue.Code)))
		if issue.Field != "" {
			record.AddAttributes(otelLog.String("issue.field", issue.Field))
		}
		if issue.Value != "" {
			record.AddAttributes(otelLog.String("issue.value", issue.Value))
		}
		if e.includePaths && issue.Path != "" {
			record.AddAttributes(otelLog.String(string(semconv.FilePathKey), issue.Path))
		}
		e.logger.Emit(context.Background(), record)
	}
}

// Shutdown flushes buffered records.
func (e *IssueExporter) Shutdown() {
	if e == nil || e.provider == nil {
		return
	}
	timeout := e.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func otelSeverity(severity validate.Severity) otelLog.Severity {
	switch severity {
	case validate.SeverityError:
		return otelLog.SeverityError
	case validate.SeverityWarn:
		return otelLog.SeverityWarn
	default:
		return otelLog.SeverityInfo
	}
}
