package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const FavoriteServiceName = "promptveo.v1.FavoriteService"

const (
	FavoriteServiceAddFavoriteProcedure    = "/promptveo.v1.FavoriteService/AddFavorite"
	FavoriteServiceRemoveFavoriteProcedure = "/promptveo.v1.FavoriteService/RemoveFavorite"
	FavoriteServiceListFavoritesProcedure  = "/promptveo.v1.FavoriteService/ListFavorites"
	FavoriteServiceIsFavoriteProcedure     = "/promptveo.v1.FavoriteService/IsFavorite"
)

type FavoriteServiceHandler interface {
	AddFavorite(context.Context, *connect.Request[v1.AddFavoriteRequest]) (*connect.Response[v1.AddFavoriteResponse], error)
	RemoveFavorite(context.Context, *connect.Request[v1.RemoveFavoriteRequest]) (*connect.Response[v1.RemoveFavoriteResponse], error)
	ListFavorites(context.Context, *connect.Request[v1.ListFavoritesRequest]) (*connect.Response[v1.ListFavoritesResponse], error)
	IsFavorite(context.Context, *connect.Request[v1.IsFavoriteRequest]) (*connect.Response[v1.IsFavoriteResponse], error)
}

func NewFavoriteServiceHandler(svc FavoriteServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + FavoriteServiceName + "/", route(map[string]http.Handler{
		FavoriteServiceAddFavoriteProcedure:    connect.NewUnaryHandler(FavoriteServiceAddFavoriteProcedure, svc.AddFavorite, opts...),
		FavoriteServiceRemoveFavoriteProcedure: connect.NewUnaryHandler(FavoriteServiceRemoveFavoriteProcedure, svc.RemoveFavorite, opts...),
		FavoriteServiceListFavoritesProcedure:  connect.NewUnaryHandler(FavoriteServiceListFavoritesProcedure, svc.ListFavorites, opts...),
		FavoriteServiceIsFavoriteProcedure:     connect.NewUnaryHandler(FavoriteServiceIsFavoriteProcedure, svc.IsFavorite, opts...),
	})
}
