package sqlinline

const QSelectIntegrationToken = `--sql c4203209-73bc-4ab1-9392-42ed51eb5611
select token
from integration_tokens
where provider = $1::text
  and token <> '';
`

const QUpsertIntegrationToken = `--sql 8229759b-f149-451f-b53a-eb9a9b48f9af
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`

const QDeleteIntegrationToken = `--sql a434ecd2-2e04-4fcc-81bb-03d008eed657
delete from integration_tokens
where provider = $1::text;
`

// QListIntegrationTokens never returns the token itself.
const QListIntegrationTokens = `--sql f90a2304-0357-476a-9344-aacb5b558b04
select provider, coalesce(properties->>'model', ''), updated_at
from integration_tokens
order by provider;
`
