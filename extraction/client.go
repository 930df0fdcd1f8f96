package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/azure"
	"github.com/mmdatafocus/invoice_audit/models"
)

const (
	DefaultAPIVersion = "2024-11-30"
	PrebuiltInvoice   = "prebuilt-invoice"

	FieldSubTotal     = "SubTotal"
	FieldTotalTax     = "TotalTax"
	FieldInvoiceTotal = "InvoiceTotal"

	operationLocationHeader = "Operation-Location"
	userAgent               = "invoice-audit"
)

var (
	ErrMissingOperationLocation = errors.New("analyze response has no Operation-Location")
	ErrAnalyzeFailed            = errors.New("document analysis failed")
	ErrPollLimit                = errors.New("document analysis did not finish in time")
)

// Client talks to the Document Intelligence REST API over go-autorest. Requests carry
// the key in Ocp-Apim-Subscription-Key.
type Client struct {
	autorest.Client
	Endpoint     string
	ModelID      string
	APIVersion   string
	PollInterval time.Duration
	MaxPolls     int
}

func New(endpoint, apiKey string) *Client {
	c := autorest.NewClientWithUserAgent(userAgent)
	c.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Client{
		Client:       c,
		Endpoint:     strings.TrimRight(endpoint, "/"),
		ModelID:      PrebuiltInvoice,
		APIVersion:   DefaultAPIVersion,
		PollInterval: time.Second,
		MaxPolls:     120,
	}
}

// Analyze submits the document and polls the operation until it settles.
func (c *Client) Analyze(ctx context.Context, document []byte) (*AnalyzeResult, error) {
	req, err := c.analyzePreparer(ctx, document)
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "Analyze", nil, "Failure preparing request")
	}

	resp, err := autorest.SendWithSender(c, req,
		autorest.DoRetryForStatusCodes(c.RetryAttempts, c.RetryDuration, autorest.StatusCodesForRetry...))
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "Analyze", resp, "Failure sending request")
	}

	err = autorest.Respond(resp,
		azure.WithErrorUnlessStatusCode(http.StatusAccepted),
		autorest.ByClosing())
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "Analyze", resp, "Failure responding to request")
	}

	opURL := resp.Header.Get(operationLocationHeader)
	if opURL == "" {
		return nil, ErrMissingOperationLocation
	}
	return c.poll(ctx, opURL)
}

func (c *Client) analyzePreparer(ctx context.Context, document []byte) (*http.Request, error) {
	urlParameters := map[string]interface{}{
		"endpoint": c.Endpoint,
	}
	pathParameters := map[string]interface{}{
		"modelId": autorest.Encode("path", c.ModelID),
	}
	queryParameters := map[string]interface{}{
		"api-version": c.APIVersion,
	}

	preparer := autorest.CreatePreparer(
		autorest.AsContentType("application/octet-stream"),
		autorest.AsPost(),
		autorest.WithCustomBaseURL("{endpoint}/documentintelligence", urlParameters),
		autorest.WithPathParameters("/documentModels/{modelId}:analyze", pathParameters),
		autorest.WithBytes(&document),
		autorest.WithQueryParameters(queryParameters))
	return preparer.Prepare((&http.Request{}).WithContext(ctx))
}

func (c *Client) poll(ctx context.Context, opURL string) (*AnalyzeResult, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	maxPolls := c.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 1
	}

	for i := 0; i < maxPolls; i++ {
		op, err := c.getOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(op.Status) {
		case StatusSucceeded:
			if op.AnalyzeResult == nil {
				return &AnalyzeResult{}, nil
			}
			return op.AnalyzeResult, nil
		case StatusFailed, StatusCanceled:
			if op.Error != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrAnalyzeFailed, op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("%w: status %s", ErrAnalyzeFailed, op.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, ErrPollLimit
}

func (c *Client) getOperation(ctx context.Context, opURL string) (*AnalyzeOperation, error) {
	req, err := autorest.Prepare((&http.Request{}).WithContext(ctx),
		autorest.AsGet(),
		autorest.WithBaseURL(opURL))
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "getOperation", nil, "Failure preparing request")
	}

	resp, err := autorest.SendWithSender(c, req,
		autorest.DoRetryForStatusCodes(c.RetryAttempts, c.RetryDuration, autorest.StatusCodesForRetry...))
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "getOperation", resp, "Failure sending request")
	}

	var op AnalyzeOperation
	err = autorest.Respond(resp,
		azure.WithErrorUnlessStatusCode(http.StatusOK),
		autorest.ByUnmarshallingJSON(&op),
		autorest.ByClosing())
	if err != nil {
		return nil, autorest.NewErrorWithError(err, "extraction.Client", "getOperation", resp, "Failure responding to request")
	}
	return &op, nil
}

// ExtractFields analyzes the document with the prebuilt invoice model and keeps the
// first document's totals.
func (c *Client) ExtractFields(ctx context.Context, document []byte) (models.ExtractedFields, error) {
	result, err := c.Analyze(ctx, document)
	if err != nil {
		return models.ZeroExtractedFields(), err
	}
	return FieldsFromResult(result), nil
}
