package portal

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Normalized entity records. Every optional attribute is always present in
// the marshalled output: slices default to empty, nullable strings to null.
// Downstream consumers never branch on a missing field.

// Dataset is a normalized package record.
type Dataset struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	License      *string    `json:"license"`
	Maintainer   *string    `json:"maintainer"`
	Author       *string    `json:"author"`
	Created      string     `json:"created"`
	Modified     string     `json:"modified"`
	Organization string     `json:"organization"`
	Private      bool       `json:"private"`
	Tags         []string   `json:"tags"`
	Groups       []string   `json:"groups"`
	Resources    []Resource `json:"resources"`
	URL          string     `json:"url,omitempty"`
}

// Resource is a normalized resource record.
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Format      string `json:"format"`
	MimeType    string `json:"mimetype"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	Created     string `json:"created"`
	PackageID   string `json:"package_id"`
	Datastore   bool   `json:"datastore_active"`
}

// Organization is a normalized organization record.
type Organization struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Created      string   `json:"created"`
	ImageURL     string   `json:"image_url"`
	PackageCount int      `json:"package_count"`
	Members      []Member `json:"members"`
	URL          string   `json:"url,omitempty"`
}

// Member is one organization membership entry.
type Member struct {
	Name     string `json:"name"`
	Capacity string `json:"capacity"`
}

// Group is a normalized group record.
type Group struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Created      string `json:"created"`
	PackageCount int    `json:"package_count"`
	URL          string `json:"url,omitempty"`
}

// SearchPage is one page of package_search results.
type SearchPage struct {
	Count   int
	Results []json.RawMessage
}

// DecodeDataset decodes a package_show payload. Fails with ErrNotFound when
// "id" is absent and ErrMalformed when "name" is absent.
func DecodeDataset(raw []byte) (*Dataset, error) {
	return decodeDataset(raw, true)
}

// DecodeSearchDataset decodes one package_search result row. A missing name
// is tolerated and left empty; only "id" is required.
func DecodeSearchDataset(raw []byte) (*Dataset, error) {
	return decodeDataset(raw, false)
}

func decodeDataset(raw []byte, requireName bool) (*Dataset, error) {
	ds := &Dataset{
		Tags:      []string{},
		Groups:    []string{},
		Resources: []Resource{},
	}

	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeInto(d, &ds.ID)
		case "name":
			return decodeInto(d, &ds.Name)
		case "title":
			return decodeInto(d, &ds.Title)
		case "notes":
			return decodeInto(d, &ds.Description)
		case "license_title":
			return decodeIntoPtr(d, &ds.License)
		case "maintainer":
			return decodeIntoPtr(d, &ds.Maintainer)
		case "author":
			return decodeIntoPtr(d, &ds.Author)
		case "metadata_created":
			return decodeInto(d, &ds.Created)
		case "metadata_modified":
			return decodeInto(d, &ds.Modified)
		case "private":
			return decodeBoolInto(d, &ds.Private)
		case "organization":
			return decodeOrgName(d, &ds.Organization)
		case "tags":
			return decodeNameList(d, &ds.Tags)
		case "groups":
			return decodeNameList(d, &ds.Groups)
		case "resources":
			return decodeResourceList(d, &ds.Resources)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode dataset")
	}

	if ds.ID == "" {
		return nil, ErrNotFound
	}
	if requireName && ds.Name == "" {
		return nil, ErrMalformed
	}
	return ds, nil
}

// DecodeResource decodes a resource_show payload or an inline resource row.
func DecodeResource(raw []byte) (*Resource, error) {
	r := &Resource{}
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		return decodeResourceField(d, key, r)
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode resource")
	}
	if r.ID == "" {
		return nil, ErrNotFound
	}
	return r, nil
}

func decodeResourceField(d *jx.Decoder, key string, r *Resource) error {
	switch key {
	case "id":
		return decodeInto(d, &r.ID)
	case "name":
		return decodeInto(d, &r.Name)
	case "description":
		return decodeInto(d, &r.Description)
	case "format":
		return decodeInto(d, &r.Format)
	case "mimetype":
		return decodeInto(d, &r.MimeType)
	case "url":
		return decodeInto(d, &r.URL)
	case "size":
		return decodeSize(d, &r.Size)
	case "created":
		return decodeInto(d, &r.Created)
	case "package_id":
		return decodeInto(d, &r.PackageID)
	case "datastore_active":
		return decodeBoolInto(d, &r.Datastore)
	default:
		return d.Skip()
	}
}

// DecodeOrganization decodes an organization_show payload.
func DecodeOrganization(raw []byte) (*Organization, error) {
	return decodeOrganization(raw, true)
}

// DecodeSearchOrganization decodes one organization_list row, tolerating a
// missing name.
func DecodeSearchOrganization(raw []byte) (*Organization, error) {
	return decodeOrganization(raw, false)
}

func decodeOrganization(raw []byte, requireName bool) (*Organization, error) {
	org := &Organization{Members: []Member{}}
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeInto(d, &org.ID)
		case "name":
			return decodeInto(d, &org.Name)
		case "title":
			return decodeInto(d, &org.Title)
		case "description":
			return decodeInto(d, &org.Description)
		case "created":
			return decodeInto(d, &org.Created)
		case "image_url":
			return decodeInto(d, &org.ImageURL)
		case "package_count":
			return decodeIntInto(d, &org.PackageCount)
		case "users":
			return decodeMembers(d, &org.Members)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode organization")
	}

	if org.ID == "" {
		return nil, ErrNotFound
	}
	if requireName && org.Name == "" {
		return nil, ErrMalformed
	}
	return org, nil
}

// DecodeGroup decodes a group_show payload.
func DecodeGroup(raw []byte) (*Group, error) {
	g := &Group{}
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeInto(d, &g.ID)
		case "name":
			return decodeInto(d, &g.Name)
		case "title":
			return decodeInto(d, &g.Title)
		case "description":
			return decodeInto(d, &g.Description)
		case "created":
			return decodeInto(d, &g.Created)
		case "package_count":
			return decodeIntInto(d, &g.PackageCount)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode group")
	}

	if g.ID == "" {
		return nil, ErrNotFound
	}
	if g.Name == "" {
		return nil, ErrMalformed
	}
	return g, nil
}

// DecodeSearchPage decodes a package_search result: total count plus the raw
// result rows, left undecoded for per-row normalization.
func DecodeSearchPage(raw []byte) (*SearchPage, error) {
	page := &SearchPage{Results: []json.RawMessage{}}
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "count":
			return decodeIntInto(d, &page.Count)
		case "results":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				item, err := d.Raw()
				if err != nil {
					return err
				}
				page.Results = append(page.Results, json.RawMessage(item))
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode search page")
	}
	return page, nil
}

// DecodeRawList decodes a JSON array into raw rows (organization_list with
// all_fields, datastore records, and similar list-shaped results).
func DecodeRawList(raw []byte) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	d := jx.DecodeBytes(raw)
	if d.Next() == jx.Null {
		return items, nil
	}
	err := d.Arr(func(d *jx.Decoder) error {
		item, err := d.Raw()
		if err != nil {
			return err
		}
		items = append(items, json.RawMessage(item))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode list")
	}
	return items, nil
}

// =============================================================================
// Field decode helpers
// =============================================================================

func decodeInto(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// decodeIntoPtr keeps nil (rendered as JSON null) for absent or empty values.
func decodeIntoPtr(d *jx.Decoder, dst **string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	if s != "" {
		*dst = &s
	}
	return nil
}

func decodeBoolInto(d *jx.Decoder, dst *bool) error {
	if d.Next() != jx.Bool {
		return d.Skip()
	}
	b, err := d.Bool()
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func decodeIntInto(d *jx.Decoder, dst *int) error {
	if d.Next() != jx.Number {
		return d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return err
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*dst = int(f)
	return nil
}

// decodeSize accepts numbers, numeric strings, and null. Portals disagree
// on the wire type of resource sizes.
func decodeSize(d *jx.Decoder, dst *int64) error {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*dst = int64(f)
		return nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*dst = n
		}
		return nil
	default:
		return d.Skip()
	}
}

// decodeOrgName pulls the owning organization's name out of the nested
// organization object on a dataset.
func decodeOrgName(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key == "name" {
			return decodeInto(d, dst)
		}
		return d.Skip()
	})
}

// decodeNameList decodes tag/group lists, which arrive either as
// [{"name": ...}, ...] or as plain string arrays.
func decodeNameList(d *jx.Decoder, dst *[]string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			*dst = append(*dst, s)
			return nil
		case jx.Object:
			var name string
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				if key == "name" {
					return decodeInto(d, &name)
				}
				return d.Skip()
			}); err != nil {
				return err
			}
			if name != "" {
				*dst = append(*dst, name)
			}
			return nil
		default:
			return d.Skip()
		}
	})
}

func decodeResourceList(d *jx.Decoder, dst *[]Resource) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		var r Resource
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			return decodeResourceField(d, key, &r)
		}); err != nil {
			return err
		}
		*dst = append(*dst, r)
		return nil
	})
}

func decodeMembers(d *jx.Decoder, dst *[]Member) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		var m Member
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "name":
				return decodeInto(d, &m.Name)
			case "capacity":
				return decodeInto(d, &m.Capacity)
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		*dst = append(*dst, m)
		return nil
	})
}
