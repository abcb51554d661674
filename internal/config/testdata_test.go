package config

const exampleYAML = `
connection:
  user: root
  private_key_path: keys/id_ed25519
state:
  backend: sqlite
  path: state/pvecfg.db
concurrency: 2
cluster:
  name: lab
  primary: pve1
nodes:
  - name: pve1
    address: 10.0.0.1
    link0: 10.10.0.1
    nodeid: 1
  - name: pve2
    address: 10.0.0.2
  - name: pve3
    address: 10.0.0.3
    votes: 2
ha_groups:
  - name: prod
    nodes: ["pve1:2", pve2]
    restricted: true
    resources: ["vm:100", "ct:200"]
corosync:
  token: "10000"
storage:
  nfs:
    - id: backups
      server: 10.0.0.5
      export: /srv/backups
      content: backup
      nodes: [pve1, pve2]
  iscsi:
    - id: san
      portal: 10.0.0.6
      target: iqn.2024-01.lab:san
  ceph:
    - id: rbd
      pool: vms
      monhost: [10.0.0.7, 10.0.0.8]
      krbd: true
      options:
        content: images
backup_jobs:
  - id: daily
    storage: backups
    schedule: "02:00"
    mode: snapshot
    all: true
    enabled: false
containers:
  - vmid: 200
    node: pve2
    ostemplate: local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst
    hostname: web1
    memory: 512
    cores: 2
    net0: name=eth0,bridge=vmbr0,ip=dhcp
`
