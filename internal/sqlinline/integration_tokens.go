package sqlinline

// QSelectIntegrationToken reads the bearer token stored for a provider.
const QSelectIntegrationToken = `--sql 3f1c2b7e-5d14-4a8e-9c2f-6b0e7d1a4c53
select coalesce(token, '')
from integration_tokens
where provider = $1::text
order by updated_at desc
limit 1;
`

// QUpsertIntegrationToken stores or replaces the token for a provider.
const QUpsertIntegrationToken = `--sql 9a7d4e21-0b3c-4f6a-8e5d-2c1b7f9e3a60
insert into integration_tokens (provider, token, properties, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now())
on conflict (provider) do update set
  token = excluded.token,
  properties = excluded.properties,
  updated_at = now();
`
