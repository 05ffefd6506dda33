package pfapi

import (
	"context"

	"github.com/go-resty/resty/v2"

	"pf-backoffice/models"
)

type usersResponse struct {
	Data []struct {
		Agents []struct {
			ID              flexID `json:"id"`
			Name            string `json:"name"`
			PublicProfileID string `json:"publicProfileId"`
		} `json:"agents"`
	} `json:"data"`
}

// ListAgents returns the agents of the account's first user.
func (c *Client) ListAgents(ctx context.Context, cred models.Credential) ([]models.Agent, error) {
	var out usersResponse
	_, err := c.call(ctx, "users", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/v1/users")
	})
	if err != nil {
		return nil, err
	}

	agents := make([]models.Agent, 0)
	if len(out.Data) == 0 {
		return agents, nil
	}
	for _, a := range out.Data[0].Agents {
		id, err := a.ID.Int64()
		if err != nil {
			c.logger.Warn("[pfapi] skipping agent %q with non-numeric id %q", a.Name, a.ID)
			continue
		}
		agents = append(agents, models.Agent{ID: id, Name: a.Name, PublicProfileID: a.PublicProfileID})
	}
	return agents, nil
}
