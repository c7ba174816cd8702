package bgg

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// BGG error responses use a dedicated root element:
// <errors><error><message>Invalid username specified</message></error></errors>
type errorsDoc struct {
	XMLName  xml.Name `xml:"errors"`
	Messages []string `xml:"error>message"`
}

type collectionDoc struct {
	XMLName xml.Name         `xml:"items"`
	Items   []collectionItem `xml:"item"`
}

type collectionItem struct {
	ObjectID      string `xml:"objectid,attr"`
	Name          string `xml:"name"`
	YearPublished string `xml:"yearpublished"`
	Thumbnail     string `xml:"thumbnail"`
}

// valueAttr covers BGG's <elem value="..."/> convention.
type valueAttr struct {
	Value string `xml:"value,attr"`
}

type thingsDoc struct {
	XMLName xml.Name    `xml:"items"`
	Items   []thingItem `xml:"item"`
}

type thingItem struct {
	ID            string      `xml:"id,attr"`
	Names         []thingName `xml:"name"`
	YearPublished valueAttr   `xml:"yearpublished"`
	MinPlayers    valueAttr   `xml:"minplayers"`
	MaxPlayers    valueAttr   `xml:"maxplayers"`
	PlayingTime   valueAttr   `xml:"playingtime"`
	Links         []thingLink `xml:"link"`
	Statistics    *thingStats `xml:"statistics"`
}

type thingName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type thingLink struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type thingStats struct {
	Ratings struct {
		Average       valueAttr `xml:"average"`
		AverageWeight valueAttr `xml:"averageweight"`
	} `xml:"ratings"`
}

type searchDoc struct {
	XMLName xml.Name     `xml:"items"`
	Items   []searchItem `xml:"item"`
}

type searchItem struct {
	ID            string    `xml:"id,attr"`
	Name          thingName `xml:"name"`
	YearPublished valueAttr `xml:"yearpublished"`
}

// apiError extracts the message from an <errors> body, if the body is one.
func apiError(body []byte) (string, bool) {
	var doc errorsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", false
	}
	if len(doc.Messages) == 0 {
		return "unknown error", true
	}
	return strings.TrimSpace(doc.Messages[0]), true
}

// itemFromThing normalizes one /thing entry into an Item.
func itemFromThing(t thingItem, baseItemURL string) (*Item, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("%w: item missing id attribute", ErrMalformedResponse)
	}

	it := &Item{
		ID:            t.ID,
		Name:          primaryName(t.Names),
		YearPublished: parseIntPtr(t.YearPublished.Value),
		Mechanics:     []string{},
		Categories:    []string{},
		MinPlayers:    parseIntPtr(t.MinPlayers.Value),
		MaxPlayers:    parseIntPtr(t.MaxPlayers.Value),
		PlayingTime:   parseIntPtr(t.PlayingTime.Value),
		URL:           baseItemURL + t.ID,
	}

	if t.Statistics != nil {
		it.AverageRating = parseFloatPtr(t.Statistics.Ratings.Average.Value)
		it.AverageWeight = parseFloatPtr(t.Statistics.Ratings.AverageWeight.Value)
	}

	for _, link := range t.Links {
		tag := strings.TrimSpace(link.Value)
		if tag == "" {
			continue
		}
		switch link.Type {
		case "boardgamemechanic":
			it.Mechanics = appendUnique(it.Mechanics, tag)
		case "boardgamecategory":
			it.Categories = appendUnique(it.Categories, tag)
		}
	}

	return it, nil
}

func primaryName(names []thingName) string {
	for _, n := range names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	if len(names) > 0 {
		return names[0].Value
	}
	return ""
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// parseIntPtr returns nil for empty or unparsable values, never a silent zero.
func parseIntPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
