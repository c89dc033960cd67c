package sharepoint

import "context"

//go:generate mockgen -destination=mocks/sharepoint.go -package=mocks . Connector,Site,List

// Connector opens a site session bound to a bearer token. Strategies that
// authenticate on their own ignore the token.
type Connector interface {
	Connect(token string) Site
}

// Site is an open session against one SharePoint site.
type Site interface {
	// List resolves a list by its title. Existence is only checked by the
	// first remote call made through it.
	List(title string) List
}

// List writes items into a SharePoint list.
type List interface {
	// AddItem issues one create-item call with the given field values.
	AddItem(ctx context.Context, fields map[string]string) (*Item, error)
}
