package sqlinline

const QDeleteProjectAssets = `--sql 23311aa0-8329-4c39-bd5f-f22e5bab58db
delete from project_assets
where project_id = $1::uuid;
`

const QInsertProjectAsset = `--sql 8eda4120-129c-4132-9514-aaa2df92ebc3
insert into project_assets (project_id, scene_id, kind, url, source, provenance, content_type, durable, created_at)
values ($1::uuid, nullif($2::text, ''), $3::text, $4::text, $5::text, $6::text, nullif($7::text, ''), $8::bool, now());
`

const QListProjectAssets = `--sql 9dbe26b0-e315-4b73-a3ac-98a8cc70b3a7
select coalesce(scene_id, ''), kind, url, source, provenance, coalesce(content_type, ''), durable
from project_assets
where project_id = $1::uuid
order by created_at asc, kind asc;
`
