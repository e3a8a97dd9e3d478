package service

import "github.com/voyagen/darteve/internal/models"

const iptvOrg = "https://iptv-org.github.io/iptv/"

// builtinCategories are always listed, in this order, ahead of cloud and
// custom categories.
var builtinCategories = []models.Category{
	{ID: models.CategoryCombined, Name: "Combined 500", PlaylistURL: "https://raw.githubusercontent.com/FunctionError/PiratesTv/refs/heads/main/combined_playlist.m3u"},
	{ID: models.CategoryWC2026, Name: "WC-2026", PlaylistURL: "https://raw.githubusercontent.com/Jazzdar1/darfree.tv/refs/heads/main/Subirmaxpro.m3u"},
	{ID: "cat-worldcup", Name: "World CUP", PlaylistURL: "https://raw.githubusercontent.com/subirkumarpaul/Subirmaxpro/refs/heads/main/Subirmaxpro"},
	{ID: models.CategoryEvents, Name: "Live Events", PlaylistURL: models.LocatorAggregator},

	{ID: "cat-sports", Name: "Sports", PlaylistURL: iptvOrg + "categories/sports.m3u"},
	{ID: "cat-entertainment", Name: "Entertainment", PlaylistURL: iptvOrg + "categories/entertainment.m3u"},
	{ID: "cat-movies", Name: "Movies", PlaylistURL: iptvOrg + "categories/movies.m3u"},
	{ID: "cat-news", Name: "News", PlaylistURL: iptvOrg + "categories/news.m3u"},
	{ID: "cat-music", Name: "Music", PlaylistURL: iptvOrg + "categories/music.m3u"},
	{ID: "cat-kids", Name: "Kids", PlaylistURL: iptvOrg + "categories/kids.m3u"},
	{ID: "cat-documentary", Name: "Documentary", PlaylistURL: iptvOrg + "categories/documentary.m3u"},
	{ID: "cat-series", Name: "Series", PlaylistURL: iptvOrg + "categories/series.m3u"},
	{ID: "cat-general", Name: "General", PlaylistURL: iptvOrg + "categories/general.m3u"},

	{ID: "reg-asia", Name: "Asia", PlaylistURL: iptvOrg + "regions/asia.m3u"},
	{ID: "reg-arab", Name: "Arab", PlaylistURL: iptvOrg + "regions/arab.m3u"},
	{ID: "reg-europe", Name: "Europe", PlaylistURL: iptvOrg + "regions/eur.m3u"},
	{ID: "reg-namerica", Name: "North America", PlaylistURL: iptvOrg + "regions/noram.m3u"},
	{ID: "reg-samerica", Name: "South America", PlaylistURL: iptvOrg + "regions/southam.m3u"},
	{ID: "reg-africa", Name: "Africa", PlaylistURL: iptvOrg + "regions/afr.m3u"},
	{ID: "reg-oceania", Name: "Oceania", PlaylistURL: iptvOrg + "regions/oce.m3u"},
	{ID: "reg-worldwide", Name: "Worldwide", PlaylistURL: iptvOrg + "regions/ww.m3u"},
}

var favoritesCategory = models.Category{
	ID:          models.CategoryFavorites,
	Name:        "My Favorites",
	PlaylistURL: models.LocatorFavorites,
}

// cloudCategory is the shape of entries in the master playlist index.
type cloudCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlaylistURL string `json:"playlistUrl"`
	URL         string `json:"url"`
}

func (c cloudCategory) category() (models.Category, bool) {
	u := c.PlaylistURL
	if u == "" {
		u = c.URL
	}
	if c.ID == "" || u == "" {
		return models.Category{}, false
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return models.Category{ID: c.ID, Name: name, PlaylistURL: u}, true
}
