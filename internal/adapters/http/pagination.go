package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes one offset/limit page. HasMore is true when the page
// came back full, so another page may follow.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// SetLinkHeaders adds RFC 8288 Link headers for a page, keeping the
// request's other query parameters.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()

	var filters []string
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key == "offset" || key == "limit" {
			return
		}
		filters = append(filters, key+"="+string(v))
	})
	extra := ""
	if len(filters) > 0 {
		extra = "&" + strings.Join(filters, "&")
	}

	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d%s>; rel="%s"`, base, offset, p.Limit, extra, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.HasMore {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}

	c.Set("Link", strings.Join(links, ", "))
}
