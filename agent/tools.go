package agent

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"kennel-portal/completion"
	"kennel-portal/helper"
	"kennel-portal/models"
)

const (
	toolListPuppies       = "list_available_puppies"
	toolApplicationStatus = "get_my_application_status"
	toolMessageBreeder    = "send_message_to_breeder"
	toolPaymentLink       = "create_payment_link"
)

const (
	DefaultPuppyLimit = 12
	MinPuppyLimit     = 1
	MaxPuppyLimit     = 50
	DefaultPuppyState = models.PuppyReady

	applicationHistory = 3
)

// ValidationError reports model-supplied arguments that were rejected before
// touching the store. Its message is safe to show the model.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// ToolEnv is what a tool may touch. Caller always comes from the request's
// verified identity.
type ToolEnv struct {
	Caller          Caller
	Store           Store
	MaxMessageChars int
}

type Tool struct {
	Name        string
	Description string
	Params      map[string]*schema.ParameterInfo
	Run         func(ctx context.Context, env ToolEnv, args map[string]any) (any, error)
}

// Catalog returns the fixed tool set advertised to the model.
func Catalog() []Tool {
	return []Tool{
		{
			Name:        toolListPuppies,
			Description: "List puppies for sale, ordered by the date they are ready to go home.",
			Params: map[string]*schema.ParameterInfo{
				"limit": {
					Type: schema.Integer,
					Desc: fmt.Sprintf("Maximum number of puppies to return (%d-%d, default %d).", MinPuppyLimit, MaxPuppyLimit, DefaultPuppyLimit),
				},
				"status": {
					Type: schema.String,
					Desc: "Puppy status to filter on (default READY).",
					Enum: models.PuppyStatuses,
				},
			},
			Run: runListPuppies,
		},
		{
			Name:        toolApplicationStatus,
			Description: "Show the signed-in buyer's most recent adoption applications and their status.",
			Params:      map[string]*schema.ParameterInfo{},
			Run:         runApplicationStatus,
		},
		{
			Name:        toolMessageBreeder,
			Description: "Send a message from the signed-in buyer to the breeder.",
			Params: map[string]*schema.ParameterInfo{
				"text": {
					Type:     schema.String,
					Desc:     "The message to send. Long messages are shortened.",
					Required: true,
				},
			},
			Run: runMessageBreeder,
		},
		{
			Name:        toolPaymentLink,
			Description: "Get the link to the deposit payment page. Does not charge anything.",
			Params: map[string]*schema.ParameterInfo{
				"note": {
					Type: schema.String,
					Desc: "Optional note about what the payment is for.",
				},
			},
			Run: runPaymentLink,
		},
	}
}

// Declarations renders tools in the OpenAI function format.
func Declarations(tools []Tool) []completion.Tool {
	out := make([]completion.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, completion.Tool{
			Type: "function",
			Function: completion.Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parametersSchema(t.Params),
			},
		})
	}
	return out
}

func parametersSchema(params map[string]*schema.ParameterInfo) map[string]any {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make(map[string]any, len(params))
	required := make([]string, 0)
	for _, name := range names {
		p := params[name]
		prop := map[string]any{"type": string(p.Type)}
		if p.Desc != "" {
			prop["description"] = p.Desc
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ListPuppiesArgs is the validated input of list_available_puppies.
type ListPuppiesArgs struct {
	Limit  int
	Status string
}

func ValidateListPuppies(args map[string]any) (ListPuppiesArgs, error) {
	out := ListPuppiesArgs{Limit: DefaultPuppyLimit, Status: DefaultPuppyState}

	if raw, ok := args["limit"]; ok && raw != nil {
		if _, isBool := raw.(bool); isBool {
			return out, &ValidationError{Tool: toolListPuppies, Reason: "limit must be a number"}
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil || math.IsNaN(f) {
			return out, &ValidationError{Tool: toolListPuppies, Reason: "limit must be a number"}
		}
		switch {
		case f < MinPuppyLimit:
			out.Limit = MinPuppyLimit
		case f > MaxPuppyLimit:
			out.Limit = MaxPuppyLimit
		default:
			out.Limit = int(f)
		}
	}

	if raw, ok := args["status"]; ok && raw != nil {
		s, err := cast.ToStringE(raw)
		if err != nil {
			return out, &ValidationError{Tool: toolListPuppies, Reason: "status must be a string"}
		}
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			if !slices.Contains(models.PuppyStatuses, s) {
				return out, &ValidationError{
					Tool:   toolListPuppies,
					Reason: fmt.Sprintf("status must be one of %s", strings.Join(models.PuppyStatuses, ", ")),
				}
			}
			out.Status = s
		}
	}
	return out, nil
}

func runListPuppies(ctx context.Context, env ToolEnv, args map[string]any) (any, error) {
	in, err := ValidateListPuppies(args)
	if err != nil {
		return nil, err
	}
	puppies, err := env.Store.ListPuppies(ctx, models.PuppyFilter{Status: in.Status, Limit: in.Limit})
	if err != nil {
		return nil, fmt.Errorf("list puppies: %w", err)
	}
	if puppies == nil {
		puppies = []models.Puppy{}
	}
	return map[string]any{
		"status":  in.Status,
		"count":   len(puppies),
		"puppies": puppies,
	}, nil
}

func runApplicationStatus(ctx context.Context, env ToolEnv, _ map[string]any) (any, error) {
	apps, err := env.Store.ListApplications(ctx, env.Caller.UserID, applicationHistory)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return map[string]any{
		"count":        len(apps),
		"applications": apps,
	}, nil
}

// SendMessageArgs is the validated input of send_message_to_breeder.
type SendMessageArgs struct {
	Text string
}

func ValidateSendMessage(args map[string]any, maxChars int) (SendMessageArgs, error) {
	raw, ok := args["text"]
	if !ok || raw == nil {
		return SendMessageArgs{}, &ValidationError{Tool: toolMessageBreeder, Reason: "text is required"}
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return SendMessageArgs{}, &ValidationError{Tool: toolMessageBreeder, Reason: "text must be a string"}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return SendMessageArgs{}, &ValidationError{Tool: toolMessageBreeder, Reason: "text is required"}
	}
	if maxChars <= 0 {
		maxChars = defaultMaxMessageChars
	}
	return SendMessageArgs{Text: helper.TruncateRunes(s, maxChars)}, nil
}

func runMessageBreeder(ctx context.Context, env ToolEnv, args map[string]any) (any, error) {
	in, err := ValidateSendMessage(args, env.MaxMessageChars)
	if err != nil {
		return nil, err
	}
	saved, err := env.Store.InsertMessage(ctx, models.BreederMessage{
		ID:        uuid.NewString(),
		UserID:    env.Caller.UserID,
		Sender:    models.SenderBuyer,
		Body:      in.Text,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return map[string]any{
		"sent":       true,
		"message_id": saved.ID,
	}, nil
}

// PaymentLinkArgs is the validated input of create_payment_link.
type PaymentLinkArgs struct {
	Note string
}

func ValidatePaymentLink(args map[string]any) PaymentLinkArgs {
	note, _ := cast.ToStringE(args["note"])
	return PaymentLinkArgs{Note: strings.TrimSpace(note)}
}

// runPaymentLink never charges or records anything.
func runPaymentLink(_ context.Context, env ToolEnv, args map[string]any) (any, error) {
	in := ValidatePaymentLink(args)
	return models.PaymentLink{URL: env.Store.PaymentURL(), Note: in.Note}, nil
}
