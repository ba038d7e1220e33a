package repo

import (
	"context"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// StoredAsset is one row of the project asset index.
type StoredAsset struct {
	SceneID     string
	Kind        domain.AssetKind
	URL         string
	Source      string
	Provenance  domain.Provenance
	ContentType string
	Durable     bool
}

// AssetRepositoryPG indexes the assets a project currently references so
// storage can be audited without decoding project documents.
type AssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(sql infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{sql: sql}
}

// ListByProject returns the indexed assets of a project.
func (r *AssetRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]StoredAsset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjectAssets, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []StoredAsset
	for rows.Next() {
		var (
			a                StoredAsset
			kind, provenance string
		)
		if err := rows.Scan(&a.SceneID, &kind, &a.URL, &a.Source, &provenance, &a.ContentType, &a.Durable); err != nil {
			return nil, err
		}
		a.Kind = domain.AssetKind(kind)
		a.Provenance = domain.Provenance(provenance)
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// Replace rewrites the index for p from its current asset references.
func (r *AssetRepositoryPG) Replace(ctx context.Context, p *domain.VideoProject) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteProjectAssets, p.ID); err != nil {
		return err
	}
	for _, a := range CollectAssets(p) {
		if _, err := r.sql.Exec(ctx, sqlinline.QInsertProjectAsset,
			p.ID, a.SceneID, string(a.Kind), a.URL, a.Source, string(a.Provenance), a.ContentType, a.Durable,
		); err != nil {
			return err
		}
	}
	return nil
}

// CollectAssets lists the referenced assets of p that have a URL.
func CollectAssets(p *domain.VideoProject) []StoredAsset {
	var out []StoredAsset
	add := func(a *domain.AssetRef, sceneID string) {
		if a == nil || a.URL == "" {
			return
		}
		out = append(out, StoredAsset{
			SceneID:     sceneID,
			Kind:        a.Kind,
			URL:         a.URL,
			Source:      a.Source,
			Provenance:  a.Provenance,
			ContentType: a.ContentType,
			Durable:     a.Durable,
		})
	}
	add(p.Assets.Voiceover, "")
	add(p.Assets.Music, "")
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.Background != nil {
			add(&s.Background.Asset, s.ID)
		}
		for _, c := range s.Sound.Cues() {
			add(c.Asset, s.ID)
		}
	}
	return out
}
