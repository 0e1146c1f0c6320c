// Package s3store implements storage.ObjectStorage on an S3-compatible
// bucket. A container is a key prefix holding a marker object whose user
// metadata records the container name and parent; access grants are the
// marker's ACL. Inbound objects wait under a separate inbox prefix.
//
// S3 stores a grant made by email as a canonical user, and reads it back
// without the address. Each container therefore keeps a grantees object
// mapping the canonical ids it was granted to back to their identities.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

const (
	markerName   = ".container"
	granteesName = ".grantees"
	metaName     = "name"
	metaParent   = "parent"
	metaTrashed  = "trashed"

	codeUnresolvableEmail = "UnresolvableGrantByEmailAddress"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	GetObjectAcl(ctx context.Context, in *s3.GetObjectAclInput, optFns ...func(*s3.Options)) (*s3.GetObjectAclOutput, error)
	PutObjectAcl(ctx context.Context, in *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
}

type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	InboxPrefix  string
}

type Store struct {
	client s3API
	bucket string
	inbox  string
}

var _ storage.ObjectStorage = (*Store)(nil)

// New builds a client from static credentials. A non-empty BaseEndpoint
// switches to path-style addressing for MinIO and similar servers.
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, opts.Bucket, opts.InboxPrefix), nil
}

func newStore(client s3API, bucket, inbox string) *Store {
	if inbox == "" {
		inbox = "inbox"
	}
	return &Store{client: client, bucket: bucket, inbox: strings.TrimSuffix(inbox, "/")}
}

func markerKey(ref string) string { return ref + "/" + markerName }

func granteesKey(ref string) string { return ref + "/" + granteesName }

func (s *Store) inboxKey(id string) string { return s.inbox + "/" + id }

func (s *Store) EnsureContainer(ctx context.Context, ref, parent, name string) error {
	_, err := s.Container(ctx, ref)
	if err == nil {
		return nil
	}
	if !storage.IsNotFound(err) {
		return err
	}
	return s.putMarker(ctx, ref, parent, name)
}

func (s *Store) CreateContainer(ctx context.Context, parent, name string) (string, error) {
	if _, err := s.Container(ctx, parent); err != nil {
		return "", fmt.Errorf("parent: %w", err)
	}
	ref := "containers/" + uuid.NewString()
	if err := s.putMarker(ctx, ref, parent, name); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *Store) putMarker(ctx context.Context, ref, parent, name string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(markerKey(ref)),
		Body:   strings.NewReader(""),
		Metadata: map[string]string{
			metaName:   url.PathEscape(name),
			metaParent: parent,
		},
	})
	if err != nil {
		return fmt.Errorf("put container marker %s: %w", ref, mapError(err))
	}
	return nil
}

func (s *Store) Container(ctx context.Context, ref string) (*storage.ContainerInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(markerKey(ref)),
	})
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", ref, mapError(err))
	}
	return &storage.ContainerInfo{
		Ref:    ref,
		Name:   unescape(out.Metadata[metaName]),
		Parent: out.Metadata[metaParent],
	}, nil
}

func (s *Store) Object(ctx context.Context, id string) (*storage.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.inboxKey(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, mapError(err))
	}
	name := unescape(out.Metadata[metaName])
	if name == "" {
		name = id
	}
	return &storage.ObjectInfo{
		ID:      id,
		Name:    name,
		Size:    aws.ToInt64(out.ContentLength),
		Trashed: out.Metadata[metaTrashed] == "true",
	}, nil
}

// MoveObject copies the inbound object under the container prefix and
// removes the inbox copy.
func (s *Store) MoveObject(ctx context.Context, id, containerRef, name string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(containerRef + "/" + id),
		CopySource:        aws.String(s.bucket + "/" + s.inboxKey(id)),
		MetadataDirective: types.MetadataDirectiveReplace,
		Metadata:          map[string]string{metaName: url.PathEscape(name)},
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", id, containerRef, mapError(err))
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.inboxKey(id)),
	})
	if err != nil {
		return fmt.Errorf("delete inbound %s: %w", id, mapError(err))
	}
	return nil
}

// ListObjects lists the direct objects of a container. Listings carry no
// user metadata, so Name is the object id.
func (s *Store) ListObjects(ctx context.Context, containerRef string) ([]storage.ObjectInfo, error) {
	prefix := containerRef + "/"
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var res []storage.ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", containerRef, mapError(err))
		}
		for _, o := range page.Contents {
			id := strings.TrimPrefix(aws.ToString(o.Key), prefix)
			if id == markerName || id == granteesName || id == "" || strings.Contains(id, "/") {
				continue
			}
			res = append(res, storage.ObjectInfo{ID: id, Name: id, Size: aws.ToInt64(o.Size)})
		}
	}
	return res, nil
}

func (s *Store) Grants(ctx context.Context, containerRef string) ([]storage.Grant, error) {
	out, err := s.acl(ctx, containerRef)
	if err != nil {
		return nil, err
	}
	known, err := s.grantees(ctx, containerRef)
	if err != nil {
		return nil, err
	}

	owner := ownerID(out)
	res := make([]storage.Grant, 0, len(out.Grants))
	for _, g := range out.Grants {
		if g.Grantee == nil {
			continue
		}
		res = append(res, convertGrant(g, owner, known))
	}
	return res, nil
}

func ownerID(out *s3.GetObjectAclOutput) string {
	if out.Owner == nil {
		return ""
	}
	return aws.ToString(out.Owner.ID)
}

// convertGrant maps an ACL entry to a storage.Grant. Canonical users found
// in known are reported under the identity they were granted as.
func convertGrant(g types.Grant, ownerID string, known map[string]string) storage.Grant {
	gr := storage.Grant{Type: storage.GranteeUser}

	switch g.Grantee.Type {
	case types.TypeAmazonCustomerByEmail:
		gr.Identity = aws.ToString(g.Grantee.EmailAddress)
	case types.TypeGroup:
		gr.Type = storage.GranteeGroup
		gr.Identity = aws.ToString(g.Grantee.URI)
	default:
		gr.Identity = aws.ToString(g.Grantee.EmailAddress)
		if gr.Identity == "" {
			id := aws.ToString(g.Grantee.ID)
			gr.Identity = id
			if identity, ok := known[id]; ok {
				gr.Identity = identity
			}
		}
	}

	switch {
	case ownerID != "" && aws.ToString(g.Grantee.ID) == ownerID:
		gr.Role = storage.RoleOwner
	case g.Permission == types.PermissionRead || g.Permission == types.PermissionReadAcp:
		gr.Role = storage.RoleReader
	default:
		gr.Role = storage.RoleWriter
	}
	return gr
}

// AddReadGrant adds a READ grant by email unless identity already holds
// one, then records the canonical id S3 resolved the address to.
func (s *Store) AddReadGrant(ctx context.Context, containerRef, identity string) error {
	out, err := s.acl(ctx, containerRef)
	if err != nil {
		return err
	}
	known, err := s.grantees(ctx, containerRef)
	if err != nil {
		return err
	}

	owner := ownerID(out)
	before := make(map[string]struct{}, len(out.Grants))
	for _, g := range out.Grants {
		if g.Grantee == nil {
			continue
		}
		gr := convertGrant(g, owner, known)
		if gr.Type == storage.GranteeUser && gr.Role == storage.RoleReader && strings.EqualFold(gr.Identity, identity) {
			return nil
		}
		if id := aws.ToString(g.Grantee.ID); id != "" {
			before[id] = struct{}{}
		}
	}

	grants := append([]types.Grant(nil), out.Grants...)
	grants = append(grants, types.Grant{
		Grantee: &types.Grantee{
			Type:         types.TypeAmazonCustomerByEmail,
			EmailAddress: aws.String(identity),
		},
		Permission: types.PermissionRead,
	})

	_, err = s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(markerKey(containerRef)),
		AccessControlPolicy: &types.AccessControlPolicy{
			Owner:  out.Owner,
			Grants: grants,
		},
	})
	if err != nil {
		return fmt.Errorf("grant %s on %s: %w", identity, containerRef, mapError(err))
	}

	after, err := s.acl(ctx, containerRef)
	if err != nil {
		return fmt.Errorf("grant %s on %s: read back: %w", identity, containerRef, err)
	}
	added := false
	for _, g := range after.Grants {
		if g.Grantee == nil || g.Grantee.Type != types.TypeCanonicalUser || g.Permission != types.PermissionRead {
			continue
		}
		id := aws.ToString(g.Grantee.ID)
		if _, seen := before[id]; seen || id == "" || id == owner {
			continue
		}
		known[id] = identity
		added = true
	}
	if !added {
		return nil
	}
	return s.putGrantees(ctx, containerRef, known)
}

// grantees reads the canonical id to identity map of a container. A
// container without one yields an empty map.
func (s *Store) grantees(ctx context.Context, containerRef string) (map[string]string, error) {
	known := make(map[string]string)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(granteesKey(containerRef)),
	})
	if err != nil {
		err = mapError(err)
		if storage.IsNotFound(err) {
			return known, nil
		}
		return nil, fmt.Errorf("grantees of %s: %w", containerRef, err)
	}
	defer out.Body.Close()

	if err := json.NewDecoder(out.Body).Decode(&known); err != nil {
		return nil, fmt.Errorf("grantees of %s: %w", containerRef, err)
	}
	return known, nil
}

func (s *Store) putGrantees(ctx context.Context, containerRef string, known map[string]string) error {
	b, err := json.Marshal(known)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(granteesKey(containerRef)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("record grantees of %s: %w", containerRef, mapError(err))
	}
	return nil
}

func (s *Store) acl(ctx context.Context, containerRef string) (*s3.GetObjectAclOutput, error) {
	out, err := s.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(markerKey(containerRef)),
	})
	if err != nil {
		return nil, fmt.Errorf("acl of %s: %w", containerRef, mapError(err))
	}
	return out, nil
}

// mapError translates provider error codes into the common sentinels and
// keeps the original error in the chain.
func mapError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return errors.Join(common.ErrorNotFound, err)
	case codeUnresolvableEmail:
		return errors.Join(common.ErrIncompatibleDomain, err)
	}
	return err
}

func unescape(v string) string {
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
