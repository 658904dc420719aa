// Package sam wraps the SAM.gov opportunity and entity APIs with the
// retry/backoff and caching policy the aggregator relies on.
package sam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultOpportunitiesURL = "https://api.sam.gov/opportunities/v2/search"
	defaultEntitiesURL      = "https://api.sam.gov/entity-information/v3/entities"

	maxRetries     = 3
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second
	requestTimeout = 15 * time.Second

	searchLimit = 5
)

// fillerTerms are stripped from the user's query before it is sent as the
// keyword filter.
var fillerTerms = []string{"fetch", "get", "find", "search for", "solicitation for", "contract for"}

// Opportunity is one SAM.gov contract opportunity, flattened for display.
type Opportunity struct {
	Title              string `json:"title"`
	Agency             string `json:"agency"`
	PostedDate         string `json:"posted_date"`
	DueDate            string `json:"due_date"`
	SolicitationNumber string `json:"solicitation_number"`
	URL                string `json:"url"`
}

// Entity is one SAM.gov entity registration record.
type Entity struct {
	EntityName     string `json:"entity_name"`
	UEI            string `json:"uei"`
	Status         string `json:"status"`
	ExpirationDate string `json:"expiration_date"`
}

// Award is one awarded contract notice.
type Award struct {
	Title              string `json:"title"`
	SolicitationNumber string `json:"solicitation_number"`
	AwardAmount        string `json:"award_amount"`
	AwardDate          string `json:"award_date"`
	Awardee            string `json:"awardee"`
	URL                string `json:"url"`
}

type Client struct {
	apiKey           string
	httpc            *http.Client
	opportunitiesURL string
	entitiesURL      string
	cache            *responseCache

	// injectable for tests
	sleep func(time.Duration)
	now   func() time.Time
}

func NewClient(apiKey string, cacheTTL time.Duration) *Client {
	return &Client{
		apiKey:           apiKey,
		httpc:            &http.Client{Timeout: requestTimeout},
		opportunitiesURL: defaultOpportunitiesURL,
		entitiesURL:      defaultEntitiesURL,
		cache:            newResponseCache(cacheTTL),
		sleep:            time.Sleep,
		now:              time.Now,
	}
}

// CleanKeywords strips filler terms from a free-text query so only the
// substantive search terms reach the API.
func CleanKeywords(query string) string {
	terms := strings.ToLower(query)
	for _, filler := range fillerTerms {
		terms = strings.ReplaceAll(terms, filler, "")
	}
	return strings.Join(strings.Fields(terms), " ")
}

// SearchOpportunities queries the opportunity registry with a 30-day forward
// posting window. A nil error with an empty slice means nothing matched.
func (c *Client) SearchOpportunities(ctx context.Context, query string) ([]Opportunity, error) {
	if c.apiKey == "" {
		log.Printf("sam: SAM_API_KEY not set, skipping opportunity search")
		return nil, nil
	}

	today := c.now()
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("postedFrom", today.Format("01/02/2006"))
	params.Set("postedTo", today.AddDate(0, 0, 30).Format("01/02/2006"))
	params.Set("limit", fmt.Sprint(searchLimit))
	params.Set("isActive", "true")
	if kw := CleanKeywords(query); kw != "" {
		params.Set("keywords", kw)
	}

	cacheKey := "opp:" + params.Encode()
	if v, ok := c.cache.get(cacheKey); ok {
		return v.([]Opportunity), nil
	}

	body, err := c.getWithRetry(ctx, c.opportunitiesURL, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		OpportunitiesData []struct {
			NoticeID           string `json:"noticeId"`
			Title              string `json:"title"`
			OrganizationName   string `json:"organizationName"`
			PostedDate         string `json:"postedDate"`
			ResponseDeadLine   string `json:"responseDeadLine"`
			SolicitationNumber string `json:"solicitationNumber"`
		} `json:"opportunitiesData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode opportunities: %w", err)
	}

	var out []Opportunity
	for _, opp := range payload.OpportunitiesData {
		if opp.NoticeID == "" {
			continue
		}
		out = append(out, Opportunity{
			Title:              orNA(opp.Title),
			Agency:             orNA(opp.OrganizationName),
			PostedDate:         orNA(opp.PostedDate),
			DueDate:            orNA(opp.ResponseDeadLine),
			SolicitationNumber: orNA(opp.SolicitationNumber),
			URL:                fmt.Sprintf("https://sam.gov/opp/%s/view", opp.NoticeID),
		})
	}

	c.cache.set(cacheKey, out)
	return out, nil
}

// SearchAwards returns recently awarded contract notices (notice type "a").
func (c *Client) SearchAwards(ctx context.Context) ([]Award, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	today := c.now()
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("postedFrom", today.AddDate(0, 0, -30).Format("01/02/2006"))
	params.Set("postedTo", today.Format("01/02/2006"))
	params.Set("limit", fmt.Sprint(searchLimit))
	params.Set("ptype", "a")

	cacheKey := "award:" + params.Encode()
	if v, ok := c.cache.get(cacheKey); ok {
		return v.([]Award), nil
	}

	body, err := c.getWithRetry(ctx, c.opportunitiesURL, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		OpportunitiesData []struct {
			NoticeID           string `json:"noticeId"`
			Title              string `json:"title"`
			SolicitationNumber string `json:"solicitationNumber"`
			Award              struct {
				Date    string `json:"date"`
				Amount  string `json:"amount"`
				Awardee struct {
					Name string `json:"name"`
				} `json:"awardee"`
			} `json:"award"`
		} `json:"opportunitiesData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode awards: %w", err)
	}

	var out []Award
	for _, opp := range payload.OpportunitiesData {
		if opp.NoticeID == "" {
			continue
		}
		out = append(out, Award{
			Title:              orNA(opp.Title),
			SolicitationNumber: orNA(opp.SolicitationNumber),
			AwardAmount:        orNA(opp.Award.Amount),
			AwardDate:          orNA(opp.Award.Date),
			Awardee:            orNA(opp.Award.Awardee.Name),
			URL:                fmt.Sprintf("https://sam.gov/opp/%s/view", opp.NoticeID),
		})
	}

	c.cache.set(cacheKey, out)
	return out, nil
}

// EntityStatus queries the entity registration registry.
func (c *Client) EntityStatus(ctx context.Context, query string) ([]Entity, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", query)
	params.Set("page", "0")
	params.Set("size", "10")

	cacheKey := "entity:" + params.Encode()
	if v, ok := c.cache.get(cacheKey); ok {
		return v.([]Entity), nil
	}

	body, err := c.getWithRetry(ctx, c.entitiesURL, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		EntityData []struct {
			CoreData struct {
				EntityRegistration struct {
					LegalBusinessName          string `json:"legalBusinessName"`
					UeiSAM                     string `json:"ueiSAM"`
					RegistrationStatus         string `json:"registrationStatus"`
					RegistrationExpirationDate string `json:"registrationExpirationDate"`
				} `json:"entityRegistration"`
			} `json:"coreData"`
		} `json:"entityData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}

	var out []Entity
	for _, e := range payload.EntityData {
		reg := e.CoreData.EntityRegistration
		out = append(out, Entity{
			EntityName:     orNA(reg.LegalBusinessName),
			UEI:            orNA(reg.UeiSAM),
			Status:         orNA(reg.RegistrationStatus),
			ExpirationDate: orNA(reg.RegistrationExpirationDate),
		})
	}

	c.cache.set(cacheKey, out)
	return out, nil
}

// getWithRetry issues a GET, retrying on 429 with exponential backoff capped
// at maxBackoff. Any other non-200 status is a terminal error.
func (c *Client) getWithRetry(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			if delay > maxBackoff {
				delay = maxBackoff
			}
			c.sleep(delay)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("sam request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastStatus = resp.StatusCode
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("sam api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read sam response: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("sam api rate limited after %d retries (status %d)", maxRetries, lastStatus)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
