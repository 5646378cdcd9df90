package tui

import (
	"fmt"
)

// Canonical short status messages used across the app.
const (
	MsgRefreshing        = "Refreshing…"
	MsgLoadingCategories = "Loading categories…"
	MsgLoadingJokes      = "Loading jokes…"
	MsgNoResults         = "No results"
	MsgMaxReached        = "That's all for this category"
	MsgAlreadyLoading    = "Already loading"
)

func MsgCategoriesLoaded(n int) string {
	if n == 1 {
		return "Loaded 1 category"
	}
	return fmt.Sprintf("Loaded %d categories", n)
}

func MsgJokesAdded(category string, n int) string {
	if n == 1 {
		return fmt.Sprintf("1 new joke in %s", category)
	}
	return fmt.Sprintf("%d new jokes in %s", n, category)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgSearchIndex(docCount int) string {
	return fmt.Sprintf("Search • idx: %d jokes", docCount)
}
