// Package http exposes the dashboard query layer over a chi-based JSON API.
package http
