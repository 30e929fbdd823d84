package gmail

import (
	"context"

	"google.golang.org/api/gmail/v1"
)

// api is the slice of the Gmail REST surface the client needs
type api interface {
	ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error)
	GetRaw(ctx context.Context, id string) (*gmail.Message, error)
	ListLabels(ctx context.Context) ([]*gmail.Label, error)
	CreateLabel(ctx context.Context, name string) (*gmail.Label, error)
	AddLabels(ctx context.Context, id string, labelIDs []string) error
}

type serviceAPI struct {
	svc  *gmail.Service
	user string
}

func (s *serviceAPI) ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error) {
	req := s.svc.Users.Messages.List(s.user).Q(query).IncludeSpamTrash(false)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	if pageSize > 0 {
		req = req.MaxResults(pageSize)
	}
	return req.Context(ctx).Do()
}

func (s *serviceAPI) GetRaw(ctx context.Context, id string) (*gmail.Message, error) {
	return s.svc.Users.Messages.Get(s.user, id).Format("raw").Context(ctx).Do()
}

func (s *serviceAPI) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	resp, err := s.svc.Users.Labels.List(s.user).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Labels, nil
}

func (s *serviceAPI) CreateLabel(ctx context.Context, name string) (*gmail.Label, error) {
	label := &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}
	return s.svc.Users.Labels.Create(s.user, label).Context(ctx).Do()
}

func (s *serviceAPI) AddLabels(ctx context.Context, id string, labelIDs []string) error {
	_, err := s.svc.Users.Messages.Modify(s.user, id, &gmail.ModifyMessageRequest{
		AddLabelIds: labelIDs,
	}).Context(ctx).Do()
	return err
}
