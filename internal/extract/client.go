// Package extract invokes the extraction service for fetched messages and
// derives the stable identifiers of the extracted records.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vdavid/mailsift/internal/models"
	"github.com/vdavid/mailsift/internal/rules"
)

// ErrExtraction covers every per-(message, rule) extraction failure:
// transport errors, responses matching neither contract shape, and
// failures reported by the service itself.
var ErrExtraction = errors.New("extraction failed")

// responseSchema is the contract for the service response: either a results
// array whose entries all carry an object data field, or a reported failure.
const responseSchema = `{
	"oneOf": [
		{
			"type": "object",
			"required": ["results"],
			"properties": {
				"results": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["data"],
						"properties": {"data": {"type": "object"}}
					}
				}
			}
		},
		{
			"type": "object",
			"properties": {
				"errorType": {"type": "string"},
				"errorMessage": {"type": "string"},
				"trace": {}
			},
			"not": {"required": ["results"]}
		}
	]
}`

var compiledResponseSchema = jsonschema.MustCompileString("response.json", responseSchema)

// Client calls the extraction service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an extraction service client for the given base URL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

type parseRequest struct {
	Parser      *rules.Rule        `json:"parser"`
	Mail        parseRequestMail   `json:"mail"`
	PostParser  bool               `json:"postParser"`
	Hash        bool               `json:"hash"`
	SanityCheck bool               `json:"sanityCheck"`
}

type parseRequestMail struct {
	Headers models.MailHeaders `json:"headers"`
	HTML    string             `json:"html"`
}

// Parse sends one (message, rule) pair to the service and returns the
// extracted items. Every failure wraps ErrExtraction; none of them aborts
// the message or the account run.
func (c *Client) Parse(ctx context.Context, rule *rules.Rule, mail *models.FetchedMessage) ([]models.ExtractedItem, error) {
	body, err := json.Marshal(parseRequest{
		Parser: rule,
		Mail: parseRequestMail{
			Headers: mail.Headers,
			HTML:    mail.HTML,
		},
		PostParser:  true,
		Hash:        true,
		SanityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrExtraction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned HTTP %d", ErrExtraction, resp.StatusCode)
	}

	return decodeResponse(data)
}

// decodeResponse validates the response against the contract schema and
// returns the items, or the reported failure as an error.
func decodeResponse(data []byte) ([]models.ExtractedItem, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: invalid response JSON: %v", ErrExtraction, err)
	}
	if err := compiledResponseSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: response matches neither contract shape: %v", ErrExtraction, err)
	}

	var decoded struct {
		Results      []models.ExtractedItem `json:"results"`
		ErrorType    string                 `json:"errorType"`
		ErrorMessage string                 `json:"errorMessage"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExtraction, err)
	}

	obj, _ := v.(map[string]any)
	if _, ok := obj["results"]; !ok {
		return nil, fmt.Errorf("%w: service reported failure: %s %s", ErrExtraction, decoded.ErrorType, decoded.ErrorMessage)
	}
	return decoded.Results, nil
}
