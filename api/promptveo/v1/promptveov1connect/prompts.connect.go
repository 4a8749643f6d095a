package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const PromptServiceName = "promptveo.v1.PromptService"

const (
	PromptServiceListPromptsProcedure      = "/promptveo.v1.PromptService/ListPrompts"
	PromptServiceGetPromptProcedure        = "/promptveo.v1.PromptService/GetPrompt"
	PromptServiceExportPromptJSONProcedure = "/promptveo.v1.PromptService/ExportPromptJSON"
	PromptServiceCreatePromptProcedure     = "/promptveo.v1.PromptService/CreatePrompt"
	PromptServiceRemixPromptProcedure      = "/promptveo.v1.PromptService/RemixPrompt"
	PromptServiceDeletePromptProcedure     = "/promptveo.v1.PromptService/DeletePrompt"
)

type PromptServiceHandler interface {
	ListPrompts(context.Context, *connect.Request[v1.ListPromptsRequest]) (*connect.Response[v1.ListPromptsResponse], error)
	GetPrompt(context.Context, *connect.Request[v1.GetPromptRequest]) (*connect.Response[v1.GetPromptResponse], error)
	ExportPromptJSON(context.Context, *connect.Request[v1.ExportPromptJSONRequest]) (*connect.Response[v1.ExportPromptJSONResponse], error)
	CreatePrompt(context.Context, *connect.Request[v1.CreatePromptRequest]) (*connect.Response[v1.CreatePromptResponse], error)
	RemixPrompt(context.Context, *connect.Request[v1.RemixPromptRequest]) (*connect.Response[v1.RemixPromptResponse], error)
	DeletePrompt(context.Context, *connect.Request[v1.DeletePromptRequest]) (*connect.Response[v1.DeletePromptResponse], error)
}

func NewPromptServiceHandler(svc PromptServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + PromptServiceName + "/", route(map[string]http.Handler{
		PromptServiceListPromptsProcedure:      connect.NewUnaryHandler(PromptServiceListPromptsProcedure, svc.ListPrompts, opts...),
		PromptServiceGetPromptProcedure:        connect.NewUnaryHandler(PromptServiceGetPromptProcedure, svc.GetPrompt, opts...),
		PromptServiceExportPromptJSONProcedure: connect.NewUnaryHandler(PromptServiceExportPromptJSONProcedure, svc.ExportPromptJSON, opts...),
		PromptServiceCreatePromptProcedure:     connect.NewUnaryHandler(PromptServiceCreatePromptProcedure, svc.CreatePrompt, opts...),
		PromptServiceRemixPromptProcedure:      connect.NewUnaryHandler(PromptServiceRemixPromptProcedure, svc.RemixPrompt, opts...),
		PromptServiceDeletePromptProcedure:     connect.NewUnaryHandler(PromptServiceDeletePromptProcedure, svc.DeletePrompt, opts...),
	})
}
