package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHierarchyAssignsNearestAncestor(t *testing.T) {
	pages := []PageDraft{
		{Path: "/blog/2024/post-one", DepthLevel: 3},
		{Path: "/", DepthLevel: 0},
		{Path: "/blog", DepthLevel: 1},
		{Path: "/blog/2024", DepthLevel: 2},
	}

	result := buildHierarchy(pages)

	require.Len(t, result, 4)
	assert.Equal(t, "/", result[0].Path)
	assert.Nil(t, result[0].ParentIndex)

	assert.Equal(t, "/blog", result[1].Path)

	assert.Equal(t, "/blog/2024", result[2].Path)
	require.NotNil(t, result[2].ParentIndex)
	assert.Equal(t, 1, *result[2].ParentIndex)

	assert.Equal(t, "/blog/2024/post-one", result[3].Path)
	require.NotNil(t, result[3].ParentIndex)
	assert.Equal(t, 2, *result[3].ParentIndex)
}

func TestOrganizeURLsDetectsSubdomain(t *testing.T) {
	urls := []string{
		"https://example.com/about",
		"https://shop.example.com/cart",
		"https://www.example.com/",
	}

	pages, subdomains := organizeURLs(urls, "example.com")

	require.Len(t, pages, 3)
	assert.ElementsMatch(t, []string{"shop"}, subdomains)

	for _, p := range pages {
		if p.URL == "https://shop.example.com/cart" {
			assert.True(t, p.IsSubdomain)
			assert.Equal(t, "shop", p.Subdomain)
		}
		if p.URL == "https://www.example.com/" {
			assert.False(t, p.IsSubdomain)
		}
	}
}

func TestSplitURL(t *testing.T) {
	host, path := splitURL("https://example.com/a/b")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/a/b", path)

	host, path = splitURL("https://example.com")
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/", path)
}
